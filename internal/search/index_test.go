package search

import (
	"reflect"
	"testing"
)

func TestOptionsAndDefaults(t *testing.T) {
	def := defaultConfig()
	if def.minRunes != 0 || def.stopwords != nil || def.maxDocs != 0 {
		t.Fatalf("defaultConfig unexpected: %#v", def)
	}

	cfg := def
	WithMinRunes(10)(&cfg)
	WithMinRunes(-5)(&cfg) // no-op
	if cfg.minRunes != 10 {
		t.Fatalf("WithMinRunes failed: %d", cfg.minRunes)
	}
	WithMaxDocs(0)(&cfg) // no-op
	WithMaxDocs(2)(&cfg)
	if cfg.maxDocs != 2 {
		t.Fatalf("WithMaxDocs failed: %d", cfg.maxDocs)
	}
	WithStopwords([]string{"  ", ""})(&cfg) // no-op
	if cfg.stopwords != nil {
		t.Fatalf("empty stopword list should leave nil map")
	}
	WithStopwords([]string{" Dan "})(&cfg)
	if _, ok := cfg.stopwords["dan"]; !ok {
		t.Fatalf("stopwords not normalized: %#v", cfg.stopwords)
	}
}

func TestTopK_RanksByJaccard(t *testing.T) {
	idx := NewIndex([]Doc{
		{ID: "1", Text: "Soto Ayam Lamongan soup"},
		{ID: "2", Text: "Ayam Goreng"},
		{ID: "3", Text: "Rendang daging sapi"},
		{ID: "4", Text: "   "},
	}, WithStopwords(Stopwords))

	if idx.Len() != 3 {
		t.Fatalf("Len = %d; want 3 (blank doc skipped)", idx.Len())
	}

	got := idx.TopK("ayam goreng", 5)
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "1" {
		t.Fatalf("unexpected ranking: %+v", got)
	}
	if got[0].Score != 1 {
		t.Fatalf("exact token match should score 1, got %v", got[0].Score)
	}
}

func TestTopK_EmptyInputs(t *testing.T) {
	if got := NewIndex(nil).TopK("x", 3); got != nil {
		t.Fatalf("empty index should return nil, got %v", got)
	}
	idx := NewIndex([]Doc{{ID: "1", Text: "nasi goreng"}}, WithStopwords([]string{"dan"}))
	for _, q := range []string{"", "   ", "dan", "!!!"} {
		if got := idx.TopK(q, 3); got != nil {
			t.Fatalf("TopK(%q) = %v; want nil", q, got)
		}
	}
	if got := idx.TopK("soto", 3); got != nil {
		t.Fatalf("no overlap should return nil, got %v", got)
	}
}

func TestTopK_TieBreakAndCap(t *testing.T) {
	idx := NewIndex([]Doc{
		{ID: "b", Text: "kue lapis"},
		{ID: "a", Text: "kue lapis"},
		{ID: "c", Text: "kue lapis legit"},
	})
	got := idx.TopK("kue lapis", 2)
	ids := []string{got[0].ID, got[1].ID}
	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Fatalf("tie-break by id failed: %v", ids)
	}
}

func TestNewIndex_MinRunesAndMaxDocs(t *testing.T) {
	idx := NewIndex([]Doc{
		{ID: "1", Text: "es"},
		{ID: "2", Text: "es teler"},
		{ID: "3", Text: "es campur"},
	}, WithMinRunes(3), WithMaxDocs(1))
	if idx.Len() != 1 {
		t.Fatalf("Len = %d; want 1", idx.Len())
	}
	if got := idx.TopK("es", 5); len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("unexpected results: %+v", got)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	if got := normalizeWhitespace("a \t\n b"); got != "a b" {
		t.Fatalf("normalizeWhitespace = %q", got)
	}
}
