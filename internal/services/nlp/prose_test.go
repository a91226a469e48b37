package nlp

import (
	"context"
	"errors"
	"testing"

	"github.com/jdkato/prose/v2"
)

func TestLocateEntities(t *testing.T) {
	t.Parallel()

	text := "Tesla hired Tesla veterans in Palo Alto."
	got := locateEntities(text, []prose.Entity{
		{Text: "Tesla", Label: "ORG"},
		{Text: "Tesla", Label: "ORG"},
		{Text: "Mars", Label: "GPE"},
		{Text: "", Label: "PERSON"},
		{Text: "Palo Alto", Label: "GPE"},
	})

	want := []Entity{
		{Entity: "org", Text: "Tesla", Start: 0, End: 5},
		{Entity: "org", Text: "Tesla", Start: 12, End: 17},
		{Entity: "gpe", Text: "Palo Alto", Start: 30, End: 39},
	}
	if len(got) != len(want) {
		t.Fatalf("locateEntities() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].Entity != want[i].Entity || got[i].Text != want[i].Text ||
			got[i].Start != want[i].Start || got[i].End != want[i].End {
			t.Errorf("entity %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestProseRecognizer_Recognize(t *testing.T) {
	t.Parallel()

	text := "Lebron James plays basketball in Los Angeles."
	got, err := NewProseRecognizer().Recognize(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected prose to recognise at least one entity")
	}
	found := false
	for i, e := range got {
		if text[e.Start:e.End] != e.Text {
			t.Errorf("entity %d span %d:%d does not cover %q", i, e.Start, e.End, e.Text)
		}
		if i > 0 && got[i-1].End > e.Start {
			t.Errorf("entities %d and %d are out of order", i-1, i)
		}
		if e.Text == "Lebron James" || e.Text == "Los Angeles" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Lebron James or Los Angeles, got %+v", got)
	}
}

func TestProseRecognizer_EmptyAndCanceled(t *testing.T) {
	t.Parallel()

	r := NewProseRecognizer()
	got, err := r.Recognize(context.Background(), "   ")
	if err != nil || len(got) != 0 {
		t.Errorf("expected no entities for blank text, got %v (%v)", got, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Recognize(ctx, "Lebron James"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
