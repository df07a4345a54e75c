// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shopkeep-dev/shopkeep/internal/store"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// maxK is the largest k vec0 accepts in a KNN query.
const maxK = 4096

var collectionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// vecDimensions reads the dimension back out of a vec0 table's DDL.
var vecDimensions = regexp.MustCompile(`float\[(\d+)\]`)

const dimensionsKey = "dimensions"

var _ store.SentenceIndex = (*Index)(nil)

// Index implements store.SentenceIndex on a sqlite-vec vec0 table
// partitioned by store_id, plus a metadata table holding the sentence text.
type Index struct {
	db         *sql.DB
	dimensions int
	vecTable   string
	metaTable  string
	infoTable  string
}

// Open opens (or creates) the database at dbPath and the tables for
// collection.
func Open(dbPath, collection string, dimensions int) (*Index, error) {
	if !collectionName.MatchString(collection) {
		return nil, shoperr.Errorf(shoperr.CodeStoreInvalidInput,
			"collection %q must be a valid SQL identifier", collection)
	}
	if dimensions <= 0 {
		return nil, shoperr.Errorf(shoperr.CodeStoreInvalidInput, "dimensions must be positive, got %d", dimensions)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, dbErr(err, "opening sqlite db")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, dbErr(err, "pinging sqlite db")
	}

	idx := &Index{
		db:         db,
		dimensions: dimensions,
		vecTable:   collection + "_vec",
		metaTable:  collection + "_sentences",
		infoTable:  collection + "_meta",
	}
	if err := idx.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) migrate() error {
	if err := i.checkDimensions(); err != nil {
		return err
	}

	vecDDL := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(
	id TEXT PRIMARY KEY,
	store_id TEXT PARTITION KEY,
	embedding float[%d] distance_metric=cosine
)`, i.vecTable, i.dimensions)
	if _, err := i.db.Exec(vecDDL); err != nil {
		return dbErr(err, "creating vector table")
	}

	metaDDL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id       TEXT PRIMARY KEY,
	store_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	document TEXT NOT NULL
)`, i.metaTable)
	if _, err := i.db.Exec(metaDDL); err != nil {
		return dbErr(err, "creating sentence table")
	}

	idxDDL := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_store_id ON %[1]s(store_id)`, i.metaTable)
	if _, err := i.db.Exec(idxDDL); err != nil {
		return dbErr(err, "creating store_id index")
	}
	return nil
}

// checkDimensions records the collection's vector dimension on first use
// and refuses a different one afterwards. Collections created before the
// meta table existed fall back to the dimension in the vec0 DDL.
func (i *Index) checkDimensions() error {
	infoDDL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`, i.infoTable)
	if _, err := i.db.Exec(infoDDL); err != nil {
		return dbErr(err, "creating meta table")
	}

	existing, err := i.recordedDimensions()
	if err != nil {
		return err
	}
	if existing != 0 && existing != i.dimensions {
		return shoperr.Errorf(shoperr.CodeStoreInvalidInput,
			"collection %s was created with %d dimensions, got %d", i.vecTable, existing, i.dimensions)
	}

	_, err = i.db.Exec(
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (key, value) VALUES (?, ?)`, i.infoTable),
		dimensionsKey, strconv.Itoa(i.dimensions))
	if err != nil {
		return dbErr(err, "writing collection dimensions")
	}
	return nil
}

// recordedDimensions returns 0 when the collection is new.
func (i *Index) recordedDimensions() (int, error) {
	var raw string
	err := i.db.QueryRow(fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, i.infoTable), dimensionsKey).Scan(&raw)
	switch {
	case err == nil:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, dbErr(err, "reading collection dimensions")
		}
		return n, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, dbErr(err, "reading collection dimensions")
	}

	var ddl string
	err = i.db.QueryRow(`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, i.vecTable).Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, dbErr(err, "reading vector table schema")
	}
	m := vecDimensions.FindStringSubmatch(ddl)
	if m == nil {
		return 0, nil
	}
	n, _ := strconv.Atoi(m[1])
	return n, nil
}

// Replace swaps the store's records inside one transaction, so readers see
// either the old or the new set.
func (i *Index) Replace(ctx context.Context, storeID string, documents []string, embeddings [][]float32) error {
	records, err := store.BuildRecords(storeID, documents, embeddings, i.dimensions)
	if err != nil {
		return err
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	removed, err := i.deleteStore(ctx, tx, storeID)
	if err != nil {
		return err
	}

	insVec := fmt.Sprintf(`INSERT INTO %s(id, store_id, embedding) VALUES (?, ?, ?)`, i.vecTable)
	insMeta := fmt.Sprintf(`INSERT INTO %s(id, store_id, position, document) VALUES (?, ?, ?, ?)`, i.metaTable)
	for _, r := range records {
		blob, err := sqlite_vec.SerializeFloat32(r.Embedding)
		if err != nil {
			return shoperr.Wrapf(err, shoperr.CodeStoreInvalidInput, "serializing embedding %s", r.ID)
		}
		if _, err := tx.ExecContext(ctx, insVec, r.ID, r.StoreID, blob); err != nil {
			return dbErr(err, "inserting vector "+r.ID)
		}
		if _, err := tx.ExecContext(ctx, insMeta, r.ID, r.StoreID, r.Position, r.Document); err != nil {
			return dbErr(err, "inserting sentence "+r.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return dbErr(err, "committing replace")
	}

	slog.Debug("replaced store sentences", "store_id", storeID, "removed", removed, "inserted", len(records))
	return nil
}

func (i *Index) DeleteAll(ctx context.Context, storeID string) (int, error) {
	if storeID == "" {
		return 0, shoperr.New(shoperr.CodeStoreInvalidInput, "store id must not be empty")
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, dbErr(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	n, err := i.deleteStore(ctx, tx, storeID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, dbErr(err, "committing delete")
	}
	return n, nil
}

// deleteStore removes every row for storeID. vec0 only deletes by primary
// key, so ids are read from the metadata table first.
func (i *Index) deleteStore(ctx context.Context, tx *sql.Tx, storeID string) (int, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s WHERE store_id = ?`, i.metaTable), storeID)
	if err != nil {
		return 0, dbErr(err, "listing store sentences")
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, dbErr(err, "scanning sentence id")
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, dbErr(err, "iterating sentence ids")
	}

	delVec := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, i.vecTable)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, delVec, id); err != nil {
			return 0, dbErr(err, "deleting vector "+id)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE store_id = ?`, i.metaTable), storeID); err != nil {
		return 0, dbErr(err, "deleting store sentences")
	}
	return len(ids), nil
}

// Query runs a KNN search inside the store's partition. Distance is
// cosine distance; 0 is an exact match.
func (i *Index) Query(ctx context.Context, storeID string, vector []float32, k int) ([]store.Hit, error) {
	if err := store.CheckQuery(storeID, vector, k, i.dimensions); err != nil {
		return nil, err
	}
	if k > maxK {
		k = maxK
	}

	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, shoperr.Wrapf(err, shoperr.CodeStoreInvalidInput, "serializing query vector")
	}

	q := fmt.Sprintf(`SELECT v.id, v.distance, COALESCE(m.position, 0), COALESCE(m.document, '')
FROM %s v
LEFT JOIN %s m ON m.id = v.id
WHERE v.embedding MATCH ? AND k = ? AND v.store_id = ?
ORDER BY v.distance`, i.vecTable, i.metaTable)

	rows, err := i.db.QueryContext(ctx, q, blob, k, storeID)
	if err != nil {
		return nil, dbErr(err, "searching vectors")
	}
	defer func() { _ = rows.Close() }()

	hits := []store.Hit{}
	for rows.Next() {
		h := store.Hit{StoreID: storeID}
		if err := rows.Scan(&h.ID, &h.Distance, &h.Position, &h.Document); err != nil {
			return nil, dbErr(err, "scanning search result")
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err, "iterating search results")
	}
	return hits, nil
}

func (i *Index) Close() error {
	return i.db.Close()
}

func dbErr(err error, msg string) error {
	return shoperr.Wrap(err, shoperr.CodeStoreDatabaseFailure, msg, shoperr.FieldBackend("sqlite"))
}
