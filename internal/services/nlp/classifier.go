// Package nlp provides named-entity classifiers used to derive tag candidates from page text.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// LocaleEnglish is the only locale the classifiers understand
const LocaleEnglish = "en"

var (
	// ErrMalformedResult indicates a classifier payload that is not an object or whose entities are not a list
	ErrMalformedResult = errors.New("malformed classifier result")
	// ErrUnsupportedLocale is returned for locales other than LocaleEnglish
	ErrUnsupportedLocale = errors.New("unsupported locale")
)

// Entity is one recognised span. Builtin entities carry only the Entity kind;
// gazetteer matches carry Option; free-text matches carry Text.
type Entity struct {
	Option   string  `json:"option,omitempty"`
	Text     string  `json:"text,omitempty"`
	Entity   string  `json:"entity,omitempty"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

// Tag returns the first of Option, Text and Entity that is non-empty after trimming.
// The value is returned as stored; callers normalize later.
func (e Entity) Tag() (string, bool) {
	for _, v := range [...]string{e.Option, e.Text, e.Entity} {
		if strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

// Result is the output of a classification pass.
// A nil Entities slice means the classifier reported no entity list at all.
type Result struct {
	Locale   string   `json:"locale,omitempty"`
	Entities []Entity `json:"entities"`
}

// Classifier runs named-entity recognition over text.
// Implementations are constructed once and must be safe for concurrent use.
type Classifier interface {
	Process(ctx context.Context, locale, text string) (*Result, error)
}

// ClassifierFunc adapts a function to the Classifier interface
type ClassifierFunc func(ctx context.Context, locale, text string) (*Result, error)

// Process calls f
func (f ClassifierFunc) Process(ctx context.Context, locale, text string) (*Result, error) {
	return f(ctx, locale, text)
}

// DecodeResult parses a `{"entities":[...]}` payload.
// A missing entities field decodes to a nil slice; an entities value that is not a list is ErrMalformedResult.
func DecodeResult(data []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedResult)
	}

	var raw struct {
		Locale   string          `json:"locale"`
		Entities json.RawMessage `json:"entities"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}

	res := &Result{Locale: raw.Locale}
	ents := bytes.TrimSpace(raw.Entities)
	if len(ents) == 0 || bytes.Equal(ents, []byte("null")) {
		return res, nil
	}
	if ents[0] != '[' {
		return nil, fmt.Errorf("%w: entities is not a list", ErrMalformedResult)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(ents, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	res.Entities = make([]Entity, 0, len(items))
	for _, item := range items {
		var e Entity
		// Entries that are not objects, or whose fields have unexpected types, carry no tag.
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}
		res.Entities = append(res.Entities, e)
	}
	return res, nil
}

func checkLocale(locale string) error {
	if !strings.EqualFold(locale, LocaleEnglish) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLocale, locale)
	}
	return nil
}
