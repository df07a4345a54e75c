// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/shopkeep-dev/shopkeep/internal/store/sqlite"
	"github.com/stretchr/testify/require"
)

func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".db")
}

func openTestIndex(t *testing.T, dims int) *sqlite.Index {
	t.Helper()
	idx, err := sqlite.Open(testDBPath(t, "sentences"), "store_info", dims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}
