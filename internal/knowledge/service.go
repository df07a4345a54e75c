// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

// Package knowledge turns store descriptions into indexed sentences and
// answers questions about a store from them.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopkeep-dev/shopkeep/internal/provider"
	"github.com/shopkeep-dev/shopkeep/internal/store"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// DefaultTopK is the number of sentences retrieved per question.
const DefaultTopK = 5

// Registration is the result of registering a store description.
type Registration struct {
	StoreID   string   `json:"store_id"`
	Sentences []string `json:"parsed_sentences"`
	Message   string   `json:"message"`
}

// Answer is the result of asking a question about a store.
type Answer struct {
	StoreID  string `json:"store_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ContentGuard screens caller text before it reaches a prompt and model
// text before it is stored or returned. Either method may rewrite the
// text or reject it.
type ContentGuard interface {
	Input(ctx context.Context, field, text string) (string, error)
	Output(ctx context.Context, text string) (string, error)
}

type passGuard struct{}

func (passGuard) Input(_ context.Context, _, text string) (string, error) { return text, nil }
func (passGuard) Output(_ context.Context, text string) (string, error) { return text, nil }

// Service registers stores and answers questions about them.
type Service struct {
	chunker  *Chunker
	answerer *AnswerGenerator
	embedder provider.Embedder
	index    store.SentenceIndex
	guard    ContentGuard
	topK     int
	locks    *keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithGuard screens descriptions, questions and model output with g.
func WithGuard(g ContentGuard) Option {
	return func(s *Service) {
		if g != nil {
			s.guard = g
		}
	}
}

// NewService wires a Service. gen serves both chunking and answering.
// topK <= 0 selects DefaultTopK.
func NewService(gen provider.Generator, embedder provider.Embedder, index store.SentenceIndex, topK int, opts ...Option) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	s := &Service{
		chunker:  NewChunker(gen),
		answerer: NewAnswerGenerator(gen),
		embedder: embedder,
		index:    index,
		guard:    passGuard{},
		topK:     topK,
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TopK reports how many sentences Ask retrieves.
func (s *Service) TopK() int { return s.topK }

// Register chunks description, embeds the sentences and replaces whatever
// was indexed for storeID before. Registrations of the same store are
// serialised.
func (s *Service) Register(ctx context.Context, storeID, description string) (*Registration, error) {
	if err := requireField("store_id", storeID); err != nil {
		return nil, err
	}
	if err := requireField("description", description); err != nil {
		return nil, shoperr.With(err, shoperr.FieldStoreID(storeID))
	}
	description, err := s.guard.Input(ctx, "description", description)
	if err != nil {
		return nil, shoperr.With(err, shoperr.FieldStoreID(storeID))
	}

	sentences, err := s.chunker.Chunk(ctx, description)
	if err != nil {
		return nil, shoperr.With(err, shoperr.FieldStoreID(storeID))
	}
	for i, sentence := range sentences {
		if sentences[i], err = s.guard.Output(ctx, sentence); err != nil {
			return nil, shoperr.With(err, shoperr.FieldStoreID(storeID))
		}
	}
	if len(sentences) == 0 {
		return nil, shoperr.New(shoperr.CodeKnowledgeEmptyParse, "parsing produced no sentences",
			shoperr.FieldStoreID(storeID))
	}

	vectors, err := s.embedder.Embed(ctx, sentences)
	if err != nil {
		return nil, shoperr.With(err, shoperr.FieldStoreID(storeID))
	}
	if len(vectors) != len(sentences) {
		return nil, shoperr.New(shoperr.CodeKnowledgeEmbeddingShape,
			fmt.Sprintf("embedder returned %d vectors for %d sentences", len(vectors), len(sentences)),
			shoperr.FieldStoreID(storeID))
	}

	unlock := s.locks.Lock(storeID)
	err = s.index.Replace(ctx, storeID, sentences, vectors)
	unlock()
	if err != nil {
		return nil, shoperr.With(err, shoperr.FieldStoreID(storeID))
	}

	slog.Info("store registered", "store_id", storeID, "sentences", len(sentences))
	return &Registration{
		StoreID:   storeID,
		Sentences: sentences,
		Message:   fmt.Sprintf("store registered successfully (%d sentences)", len(sentences)),
	}, nil
}

// Ask answers question from the sentences nearest to it in storeID.
func (s *Service) Ask(ctx context.Context, storeID, question string) (*Answer, error) {
	if err := requireField("store_id", storeID); err != nil {
		return nil, err
	}
	if err := requireField("question", question); err != nil {
		return nil, shoperr.With(err, shoperr.FieldStoreID(storeID))
	}
	prompted, err := s.guard.Input(ctx, "question", question)
	if err != nil {
		return nil, shoperr.With(err, shoperr.FieldStoreID(storeID))
	}

	qvec, err := provider.EmbedOne(ctx, s.embedder, prompted)
	if err != nil {
		return nil, shoperr.With(err, shoperr.FieldStoreID(storeID))
	}

	hits, err := s.index.Query(ctx, storeID, qvec, s.topK)
	if err != nil {
		return nil, shoperr.With(err, shoperr.FieldStoreID(storeID))
	}
	if len(hits) == 0 {
		return nil, shoperr.New(shoperr.CodeKnowledgeStoreNotFound,
			fmt.Sprintf("no information for store %q", storeID),
			shoperr.FieldStoreID(storeID))
	}

	reply, err := s.answerer.Answer(ctx, joinDocuments(hits), prompted)
	if err != nil {
		return nil, shoperr.With(err, shoperr.FieldStoreID(storeID))
	}
	if reply, err = s.guard.Output(ctx, reply); err != nil {
		return nil, shoperr.With(err, shoperr.FieldStoreID(storeID))
	}

	slog.Debug("question answered", "store_id", storeID, "hits", len(hits))
	return &Answer{StoreID: storeID, Question: question, Answer: reply}, nil
}

// Forget removes everything indexed for storeID and reports how many
// sentences were removed. Unknown stores return 0.
func (s *Service) Forget(ctx context.Context, storeID string) (int, error) {
	if err := requireField("store_id", storeID); err != nil {
		return 0, err
	}

	unlock := s.locks.Lock(storeID)
	defer unlock()

	n, err := s.index.DeleteAll(ctx, storeID)
	if err != nil {
		return 0, shoperr.With(err, shoperr.FieldStoreID(storeID))
	}
	if n > 0 {
		slog.Info("store forgotten", "store_id", storeID, "sentences", n)
	}
	return n, nil
}

// joinDocuments keeps the index's ranking order.
func joinDocuments(hits []store.Hit) string {
	docs := make([]string, len(hits))
	for i, h := range hits {
		docs[i] = h.Document
	}
	return strings.Join(docs, "\n")
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return shoperr.Errorf(shoperr.CodeKnowledgeInputInvalid, "%s must not be empty", name)
	}
	return nil
}
