package nlp

import (
	"context"
	"errors"
	"testing"
)

func TestEntityTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		entity Entity
		want   string
		ok     bool
	}{
		{name: "option wins", entity: Entity{Option: "golang", Text: "Go", Entity: "topic"}, want: "golang", ok: true},
		{name: "text when no option", entity: Entity{Text: "Tesla", Entity: "proper_noun"}, want: "Tesla", ok: true},
		{name: "entity kind as last resort", entity: Entity{Entity: "email"}, want: "email", ok: true},
		{name: "blank option skipped", entity: Entity{Option: "  ", Text: "Rust"}, want: "Rust", ok: true},
		{name: "value returned untrimmed", entity: Entity{Text: " Tesla "}, want: " Tesla ", ok: true},
		{name: "nothing usable", entity: Entity{Option: "", Text: "\t", Entity: ""}, want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.entity.Tag()
			if got != tt.want || ok != tt.ok {
				t.Errorf("Tag() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDecodeResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		payload     string
		wantErr     error
		wantNil     bool
		wantEntites int
	}{
		{name: "entities list", payload: `{"entities":[{"text":"Tesla","entity":"org"},{"option":"golang"}]}`, wantEntites: 2},
		{name: "empty list", payload: `{"entities":[]}`, wantEntites: 0},
		{name: "missing entities", payload: `{"locale":"en"}`, wantNil: true},
		{name: "null entities", payload: `{"entities":null}`, wantNil: true},
		{name: "entities not a list", payload: `{"entities":"not-an-array"}`, wantErr: ErrMalformedResult},
		{name: "not an object", payload: `[1,2,3]`, wantErr: ErrMalformedResult},
		{name: "empty payload", payload: ``, wantErr: ErrMalformedResult},
		{name: "invalid json", payload: `{"entities":[`, wantErr: ErrMalformedResult},
		{name: "bad entries skipped", payload: `{"entities":[42,"x",{"text":"Go"},{"start":"zero"}]}`, wantEntites: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := DecodeResult([]byte(tt.payload))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if res.Entities != nil {
					t.Errorf("expected nil entities, got %v", res.Entities)
				}
				return
			}
			if res.Entities == nil {
				t.Fatal("expected non-nil entities")
			}
			if len(res.Entities) != tt.wantEntites {
				t.Errorf("expected %d entities, got %d", tt.wantEntites, len(res.Entities))
			}
		})
	}
}

func TestClassifierFunc(t *testing.T) {
	t.Parallel()

	var gotLocale, gotText string
	c := ClassifierFunc(func(_ context.Context, locale, text string) (*Result, error) {
		gotLocale, gotText = locale, text
		return &Result{Entities: []Entity{}}, nil
	})
	if _, err := c.Process(context.Background(), LocaleEnglish, "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLocale != "en" || gotText != "hello" {
		t.Errorf("arguments not forwarded: %q %q", gotLocale, gotText)
	}
}
