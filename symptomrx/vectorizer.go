package symptomrx

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// tokenPattern keeps runs of letters, digits and underscores; single characters are dropped later.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// VectorizerOptions configures the analyzer used by FitVocabulary.
type VectorizerOptions struct {
	NGram     NGramRange
	StopWords StopWordSet
}

// Vocabulary is the fitted state of the TF-IDF vectorizer. It is immutable after FitVocabulary.
type Vocabulary struct {
	// Terms maps each n-gram to its column; columns follow lexical term order.
	Terms     map[string]int
	IDF       []float64
	NGram     NGramRange
	StopWords StopWordSet
}

// Size returns the number of columns a transformed vector spans.
func (v *Vocabulary) Size() int { return len(v.IDF) }

// analyze lowercases, tokenizes, removes stop words and expands n-grams.
func analyze(doc string, ngram NGramRange, stop map[string]struct{}) []string {
	raw := tokenPattern.FindAllString(FoldCase(doc), -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		if _, ok := stop[tok]; ok {
			continue
		}
		tokens = append(tokens, tok)
	}
	lo, hi := ngram.Bounds()
	if lo == 1 && hi == 1 {
		return tokens
	}
	terms := make([]string, 0, len(tokens)*(hi-lo+1))
	for n := lo; n <= hi; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

// FitVocabulary learns n-gram document frequencies over docs.
// The result does not depend on the order of docs.
func FitVocabulary(docs []string, opts VectorizerOptions) (*Vocabulary, error) {
	if len(docs) == 0 {
		return nil, ErrNoSamples
	}
	if !opts.NGram.Valid() {
		return nil, ErrInvalidParams
	}
	if opts.StopWords == "" {
		opts.StopWords = StopWordsEnglish
	}
	stop := opts.StopWords.words()
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range analyze(doc, opts.NGram, stop) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	vocab := &Vocabulary{
		Terms:     make(map[string]int, len(terms)),
		IDF:       make([]float64, len(terms)),
		NGram:     opts.NGram,
		StopWords: opts.StopWords,
	}
	n := float64(len(docs))
	for i, term := range terms {
		vocab.Terms[term] = i
		// Smoothed idf: as if one extra document contained every term.
		vocab.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return vocab, nil
}

// TransformOne encodes a document as an L2-normalised TF-IDF vector.
// Terms outside the vocabulary are ignored.
func (v *Vocabulary) TransformOne(doc string) Vector {
	counts := make(map[int]float64)
	for _, term := range analyze(doc, v.NGram, v.StopWords.words()) {
		if idx, ok := v.Terms[term]; ok {
			counts[idx]++
		}
	}
	vec := Vector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)
	for _, idx := range vec.Indices {
		vec.Values = append(vec.Values, counts[idx]*v.IDF[idx])
	}
	vec.normalize()
	return vec
}

// Transform encodes docs in input order.
func (v *Vocabulary) Transform(docs []string) []Vector {
	out := make([]Vector, len(docs))
	for i, doc := range docs {
		out[i] = v.TransformOne(doc)
	}
	return out
}
