// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package qdrant

var PointID = pointID
