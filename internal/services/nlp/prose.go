package nlp

import (
	"context"
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

// ProseRecognizer tags PERSON, GPE and ORG entities with prose's averaged perceptron model.
// Each call loads its own model, so it is safe for concurrent use.
type ProseRecognizer struct{}

// NewProseRecognizer creates a prose backed recognizer
func NewProseRecognizer() *ProseRecognizer {
	return &ProseRecognizer{}
}

// Recognize returns the entities prose finds, located in text in order.
// Entities whose tokens cannot be found verbatim are dropped.
func (r *ProseRecognizer) Recognize(ctx context.Context, text string) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("prose: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return locateEntities(text, doc.Entities()), nil
}

func locateEntities(text string, found []prose.Entity) []Entity {
	out := make([]Entity, 0, len(found))
	cursor := 0
	for _, ent := range found {
		if ent.Text == "" {
			continue
		}
		i := strings.Index(text[cursor:], ent.Text)
		if i < 0 {
			continue
		}
		start := cursor + i
		end := start + len(ent.Text)
		out = append(out, Entity{
			Entity:   strings.ToLower(ent.Label),
			Text:     ent.Text,
			Start:    start,
			End:      end,
			Accuracy: 0.9,
		})
		cursor = end
	}
	return out
}
