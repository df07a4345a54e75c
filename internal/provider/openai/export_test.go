// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package openai

var (
	BuildChatParams      = buildChatParams
	BuildEmbeddingParams = buildEmbeddingParams
)
