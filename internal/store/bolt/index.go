// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

// Package bolt implements store.SentenceIndex on a bbolt file with a
// brute-force cosine scan. It suits small deployments without cgo.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/shopkeep-dev/shopkeep/internal/store"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

var _ store.SentenceIndex = (*Index)(nil)

var dimensionsKey = []byte("dimensions")

// Index keeps one nested bucket per store under the collection bucket, so
// replacing a store is a single transaction.
type Index struct {
	db         *bbolt.DB
	dimensions int
	collection []byte
	meta       []byte
}

type storedSentence struct {
	ID        string    `json:"id"`
	Document  string    `json:"d"`
	Embedding []float32 `json:"v"`
}

// Open opens (or creates) the bolt file at path. An existing collection
// created with different dimensions is rejected.
func Open(path, collection string, dimensions int) (*Index, error) {
	if collection == "" {
		return nil, shoperr.New(shoperr.CodeStoreInvalidInput, "collection must not be empty")
	}
	if dimensions <= 0 {
		return nil, shoperr.Errorf(shoperr.CodeStoreInvalidInput, "dimensions must be positive, got %d", dimensions)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, dbErr(err, "opening bolt db")
	}

	idx := &Index{
		db:         db,
		dimensions: dimensions,
		collection: []byte(collection),
		meta:       []byte(collection + "_meta"),
	}
	if err := idx.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) init() error {
	return i.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(i.collection); err != nil {
			return dbErr(err, "creating collection bucket")
		}
		meta, err := tx.CreateBucketIfNotExists(i.meta)
		if err != nil {
			return dbErr(err, "creating meta bucket")
		}
		if raw := meta.Get(dimensionsKey); raw != nil {
			existing, err := strconv.Atoi(string(raw))
			if err != nil {
				return dbErr(err, "reading collection dimensions")
			}
			if existing != i.dimensions {
				return shoperr.Errorf(shoperr.CodeStoreInvalidInput,
					"collection %s was created with %d dimensions, got %d", i.collection, existing, i.dimensions)
			}
			return nil
		}
		return dbErr(meta.Put(dimensionsKey, []byte(strconv.Itoa(i.dimensions))), "writing collection dimensions")
	})
}

// Replace drops the store's bucket and writes the new sentences in the
// same transaction.
func (i *Index) Replace(ctx context.Context, storeID string, documents []string, embeddings [][]float32) error {
	records, err := store.BuildRecords(storeID, documents, embeddings, i.dimensions)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return i.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(i.collection)
		if root.Bucket([]byte(storeID)) != nil {
			if err := root.DeleteBucket([]byte(storeID)); err != nil {
				return dbErr(err, "deleting previous sentences")
			}
		}
		b, err := root.CreateBucket([]byte(storeID))
		if err != nil {
			return dbErr(err, "creating store bucket")
		}
		for _, r := range records {
			data, err := json.Marshal(storedSentence{ID: r.ID, Document: r.Document, Embedding: r.Embedding})
			if err != nil {
				return dbErr(err, "encoding sentence")
			}
			if err := b.Put(positionKey(r.Position), data); err != nil {
				return dbErr(err, "writing sentence")
			}
		}
		return nil
	})
}

func (i *Index) DeleteAll(ctx context.Context, storeID string) (int, error) {
	if storeID == "" {
		return 0, shoperr.New(shoperr.CodeStoreInvalidInput, "store id must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	err := i.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(i.collection)
		b := root.Bucket([]byte(storeID))
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		return dbErr(root.DeleteBucket([]byte(storeID)), "deleting sentences")
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Query scans every sentence of the store. Distance is cosine distance;
// ties keep sentence order.
func (i *Index) Query(ctx context.Context, storeID string, vector []float32, k int) ([]store.Hit, error) {
	if err := store.CheckQuery(storeID, vector, k, i.dimensions); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var hits []store.Hit
	err := i.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(i.collection).Bucket([]byte(storeID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(key, value []byte) error {
			var s storedSentence
			if err := json.Unmarshal(value, &s); err != nil {
				return dbErr(err, "decoding sentence")
			}
			hits = append(hits, store.Hit{
				ID:       s.ID,
				StoreID:  storeID,
				Position: int(binary.BigEndian.Uint32(key)),
				Document: s.Document,
				Distance: cosineDistance(vector, s.Embedding),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (i *Index) Close() error {
	return dbErr(i.db.Close(), "closing bolt db")
}

// positionKey sorts lexically in sentence order.
func positionKey(pos int) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, uint32(pos))
	return key
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func dbErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	return shoperr.Wrap(err, shoperr.CodeStoreDatabaseFailure, msg, shoperr.FieldBackend("bolt"))
}
