// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package knowledge

import (
	"context"
	"strings"

	"github.com/shopkeep-dev/shopkeep/internal/provider"
)

// AnswerGenerator composes an answer from retrieved store sentences.
type AnswerGenerator struct {
	gen provider.Generator
}

func NewAnswerGenerator(gen provider.Generator) *AnswerGenerator {
	return &AnswerGenerator{gen: gen}
}

// Answer returns the model's trimmed reply to question grounded on info.
func (a *AnswerGenerator) Answer(ctx context.Context, info, question string) (string, error) {
	raw, err := a.gen.Generate(ctx, answerPrompt(info, question))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func answerPrompt(info, question string) string {
	var b strings.Builder
	b.WriteString("다음은 가게에 대한 정보입니다:\n")
	b.WriteString(info)
	b.WriteString("\n\n위 정보만 바탕으로 아래 질문에 자연스럽고 친절하게 답변해주세요.\n")
	b.WriteString("질문: ")
	b.WriteString(question)
	b.WriteString("\n\n답변은 질문과 같은 언어로, 자연스러운 문장으로 작성해주세요.\n")
	return b.String()
}
