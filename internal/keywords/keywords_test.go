package keywords

import (
	"reflect"
	"testing"
)

func TestFold_Diacritics(t *testing.T) {
	cases := map[string]string{
		"Čistá":    "cista",
		"São José": "sao jose",
		"Zürich":   "zurich",
		"plain":    "plain",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenize_DropsStopwordsAndFragments(t *testing.T) {
	got := Tokenize("A dog at the beach, with a ball!")
	want := []string{"dog", "beach", "ball"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenize_SplitsOnPunctuation(t *testing.T) {
	got := Tokenize("sunset/pier_2024")
	want := []string{"sunset", "pier", "2024"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestRank_MatchedTermsBeforeHits(t *testing.T) {
	docs := []Document{
		{ID: 1, Text: "beach beach beach"},           // 1 term, 3 hits
		{ID: 2, Text: "beach sunset"},                // 2 terms
		{ID: 3, Text: "mountain lake"},               // no match
		{ID: 4, Text: "sunset over the beach beach"}, // 2 terms, 3 hits
	}

	got := Rank("beach sunset", docs, 0)
	want := []int64{4, 2, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank = %v, want %v", got, want)
	}
}

func TestRank_TiesByID(t *testing.T) {
	docs := []Document{
		{ID: 9, Text: "dog park"},
		{ID: 3, Text: "dog house"},
		{ID: 7, Text: "dog walk"},
	}

	got := Rank("dog", docs, 0)
	want := []int64{3, 7, 9}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank = %v, want %v", got, want)
	}
}

func TestRank_Limit(t *testing.T) {
	docs := []Document{
		{ID: 1, Text: "cat"},
		{ID: 2, Text: "cat"},
		{ID: 3, Text: "cat"},
	}

	got := Rank("cat", docs, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
}

func TestRank_EmptyQuery(t *testing.T) {
	docs := []Document{{ID: 1, Text: "anything"}}

	if got := Rank("", docs, 10); got != nil {
		t.Errorf("expected nil for empty query, got %v", got)
	}
	if got := Rank("the a of", docs, 10); got != nil {
		t.Errorf("expected nil for stopword-only query, got %v", got)
	}
}

func TestRank_FoldedMatching(t *testing.T) {
	docs := []Document{{ID: 1, Text: "Café in Čistá"}}

	got := Rank("cafe cista", docs, 0)
	if !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("expected folded match, got %v", got)
	}
}
