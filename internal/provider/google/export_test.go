// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package google

var (
	BuildGenerateConfig = buildGenerateConfig
	BuildEmbedConfig    = buildEmbedConfig
	BuildContents       = buildContents
)
