// Package keywords tokenizes and ranks the derived text of media
// records for the embedded keyword index. Ranking is deterministic for
// a fixed corpus and query: documents are ordered by the number of
// distinct matched terms, then total matched occurrences, then record
// identity ascending.
package keywords

import (
	_ "embed"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed stopwords.yaml
var stopwordsYAML []byte

var stopwords = loadStopwords()

func loadStopwords() map[string]struct{} {
	var file struct {
		Words []string `yaml:"words"`
	}
	if err := yaml.Unmarshal(stopwordsYAML, &file); err != nil {
		// Embedded file, cannot fail in practice.
		panic("failed to unmarshal embedded stopwords.yaml: " + err.Error())
	}
	set := make(map[string]struct{}, len(file.Words))
	for _, w := range file.Words {
		set[w] = struct{}{}
	}
	return set
}

// Fold lowercases a string and strips diacritical marks
// (e.g., "Čistá" -> "cista").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, _ := transform.String(t, s)
	return strings.ToLower(folded)
}

// Tokenize splits text into folded terms, dropping stopwords and
// single-rune fragments.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// Document is one keyword-index entry to rank.
type Document struct {
	ID   int64
	Text string
}

type scored struct {
	id      int64
	matched int
	hits    int
}

// Rank returns the ids of documents matching at least one query term,
// best first, capped at limit (unlimited when limit <= 0).
func Rank(query string, docs []Document, limit int) []int64 {
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	unique := make(map[string]struct{}, len(queryTerms))
	for _, t := range queryTerms {
		unique[t] = struct{}{}
	}

	results := make([]scored, 0, len(docs))
	for _, doc := range docs {
		freq := make(map[string]int)
		for _, t := range Tokenize(doc.Text) {
			freq[t]++
		}

		matched, hits := 0, 0
		for t := range unique {
			if n := freq[t]; n > 0 {
				matched++
				hits += n
			}
		}
		if matched == 0 {
			continue
		}
		results = append(results, scored{id: doc.ID, matched: matched, hits: hits})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].matched != results[j].matched {
			return results[i].matched > results[j].matched
		}
		if results[i].hits != results[j].hits {
			return results[i].hits > results[j].hits
		}
		return results[i].id < results[j].id
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.id
	}
	return ids
}
