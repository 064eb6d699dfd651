package classifier

import (
	"errors"
	"html"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrEmptyVocabulary is returned when fitting yields no usable terms.
var ErrEmptyVocabulary = errors.New("empty vocabulary: documents only contain stop words")

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// SparseVector holds non-zero feature weights ordered by index.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Len returns the number of non-zero entries.
func (v SparseVector) Len() int { return len(v.Indices) }

// SquaredNorm returns the squared L2 norm.
func (v SparseVector) SquaredNorm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return sum
}

// Dot computes the inner product with a dense vector.
func (v SparseVector) Dot(dense []float64) float64 {
	var sum float64
	for i, idx := range v.Indices {
		if idx < len(dense) {
			sum += v.Values[i] * dense[idx]
		}
	}
	return sum
}

// VectorizerOptions controls text analysis during fitting.
type VectorizerOptions struct {
	StopWords   bool
	StripMarkup bool
}

// DefaultVectorizerOptions mirrors the training setup: English stop words
// removed, markup stripped.
func DefaultVectorizerOptions() VectorizerOptions {
	return VectorizerOptions{StopWords: true, StripMarkup: true}
}

// Vectorizer is a fitted TF-IDF transform. It is immutable once built.
type Vectorizer struct {
	vocabulary map[string]int
	idf        []float64
	opts       VectorizerOptions
	sanitizer  *bluemonday.Policy
}

// NewVectorizer builds a vectorizer from a fitted vocabulary and idf table.
func NewVectorizer(vocabulary map[string]int, idf []float64, opts VectorizerOptions) (*Vectorizer, error) {
	if len(vocabulary) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if len(vocabulary) != len(idf) {
		return nil, errors.New("vocabulary and idf sizes differ")
	}
	vocab := make(map[string]int, len(vocabulary))
	for term, idx := range vocabulary {
		if idx < 0 || idx >= len(idf) {
			return nil, errors.New("vocabulary index out of range")
		}
		vocab[term] = idx
	}
	return &Vectorizer{
		vocabulary: vocab,
		idf:        append([]float64(nil), idf...),
		opts:       opts,
		sanitizer:  bluemonday.StrictPolicy(),
	}, nil
}

// FitVectorizer learns vocabulary and smoothed idf weights from docs.
func FitVectorizer(docs []string, opts VectorizerOptions) (*Vectorizer, error) {
	probe := &Vectorizer{opts: opts, sanitizer: bluemonday.StrictPolicy()}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range probe.Analyze(doc) {
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

	n := float64(len(docs))
	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	return NewVectorizer(vocabulary, idf, opts)
}

// Analyze turns text into the token stream used for weighting.
func (v *Vectorizer) Analyze(text string) []string {
	if v.opts.StripMarkup {
		text = html.UnescapeString(v.sanitizer.Sanitize(text))
	}
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if !v.opts.StopWords {
		return raw
	}
	tokens := raw[:0]
	for _, tok := range raw {
		if _, stop := englishStopWords[tok]; !stop {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Transform maps text to an L2-normalised TF-IDF vector.
func (v *Vectorizer) Transform(text string) SparseVector {
	counts := make(map[int]float64)
	for _, tok := range v.Analyze(text) {
		if idx, ok := v.vocabulary[tok]; ok {
			counts[idx]++
		}
	}

	out := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		out.Indices = append(out.Indices, idx)
	}
	sort.Ints(out.Indices)

	var norm float64
	for _, idx := range out.Indices {
		w := counts[idx] * v.idf[idx]
		out.Values = append(out.Values, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range out.Values {
			out.Values[i] /= norm
		}
	}
	return out
}

// Dim returns the feature dimensionality.
func (v *Vectorizer) Dim() int { return len(v.idf) }

// Options returns the analysis options the vectorizer was fitted with.
func (v *Vectorizer) Options() VectorizerOptions { return v.opts }
