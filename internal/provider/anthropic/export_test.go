// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package anthropic

var BuildParams = buildParams
