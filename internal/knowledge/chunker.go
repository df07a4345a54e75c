// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopkeep-dev/shopkeep/internal/provider"
)

const chunkPromptTemplate = `다음 가게 소개글을 의미 단위로 나누어 문장 목록으로 만들어주세요.
각 문장은 하나의 완결된 의미만 담아야 합니다.
한 줄에 한 문장씩 쓰고, 번호나 글머리 기호 없이 문장만 출력해주세요.

가게 소개:
%s

출력 예시:
저희 가게는 수제 디저트 카페입니다
모든 케이크는 매일 아침 직접 굽습니다
평일은 오전 10시부터 오후 9시까지 영업합니다
`

// Chunker splits a store description into atomic sentences with a
// generative model.
type Chunker struct {
	gen provider.Generator
}

func NewChunker(gen provider.Generator) *Chunker {
	return &Chunker{gen: gen}
}

// Chunk returns the sentences in the order the model produced them. An
// empty slice with a nil error means the model returned no usable lines.
func (c *Chunker) Chunk(ctx context.Context, description string) ([]string, error) {
	raw, err := c.gen.Generate(ctx, chunkPrompt(description))
	if err != nil {
		return nil, err
	}
	return splitLines(raw), nil
}

func chunkPrompt(description string) string {
	return fmt.Sprintf(chunkPromptTemplate, description)
}

func splitLines(raw string) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
