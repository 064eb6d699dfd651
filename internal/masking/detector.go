package masking

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Detector produces entity spans over a text. Spans from different detectors
// may overlap; reconciliation is the masker's job.
type Detector interface {
	Name() string
	Detect(ctx context.Context, text string) ([]Span, error)
}

// Pattern binds a label to the expression that finds it.
type Pattern struct {
	Label Label
	Regex *regexp.Regexp
}

var defaultPatterns = []Pattern{
	{Label: LabelEmail, Regex: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{Label: LabelPhoneNumber, Regex: regexp.MustCompile(`\b(?:\+91[-\s]?|0)?\d{10}\b`)},
	{Label: LabelDOB, Regex: regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`)},
	{Label: LabelAadhar, Regex: regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)},
	{Label: LabelCreditDebitNo, Regex: regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)},
	// Matches any standalone 3-digit run, order numbers included.
	{Label: LabelCVV, Regex: regexp.MustCompile(`\b\d{3}\b`)},
	{Label: LabelExpiry, Regex: regexp.MustCompile(`\b(0[1-9]|1[0-2])/\d{2,4}\b`)},
}

// DefaultPatterns returns the structured-PII patterns in detection order.
func DefaultPatterns() []Pattern {
	out := make([]Pattern, len(defaultPatterns))
	copy(out, defaultPatterns)
	return out
}

// RegexDetector runs a fixed list of patterns independently over the text.
type RegexDetector struct {
	patterns []Pattern
}

// RegexOption customises a RegexDetector.
type RegexOption func(*RegexDetector)

// WithoutLabels drops the patterns for the given labels.
func WithoutLabels(labels ...Label) RegexOption {
	return func(d *RegexDetector) {
		skip := make(map[Label]struct{}, len(labels))
		for _, l := range labels {
			skip[l] = struct{}{}
		}
		kept := d.patterns[:0]
		for _, p := range d.patterns {
			if _, ok := skip[p.Label]; !ok {
				kept = append(kept, p)
			}
		}
		d.patterns = kept
	}
}

// WithPatterns replaces the default pattern list.
func WithPatterns(patterns ...Pattern) RegexOption {
	return func(d *RegexDetector) {
		d.patterns = append([]Pattern(nil), patterns...)
	}
}

// NewRegexDetector constructs the structured-PII detector.
func NewRegexDetector(opts ...RegexOption) *RegexDetector {
	d := &RegexDetector{patterns: DefaultPatterns()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *RegexDetector) Name() string { return "regex" }

// Detect returns every pattern match, grouped by pattern in list order.
// RE2 only treats ASCII as word characters, so a match anchored on \b is
// dropped when a non-ASCII letter or digit sits against it.
func (d *RegexDetector) Detect(_ context.Context, text string) ([]Span, error) {
	var spans []Span
	for _, p := range d.patterns {
		source := p.Regex.String()
		leading, trailing := strings.HasPrefix(source, `\b`), strings.HasSuffix(source, `\b`)
		for _, loc := range p.Regex.FindAllStringIndex(text, -1) {
			if loc[1] <= loc[0] {
				continue
			}
			if leading && !wordBoundary(text, loc[0]) || trailing && !wordBoundary(text, loc[1]) {
				continue
			}
			spans = append(spans, Span{Start: loc[0], End: loc[1], Label: p.Label})
		}
	}
	return spans, nil
}

// Fingerprint lists every label with its expression.
func (d *RegexDetector) Fingerprint() string {
	var b strings.Builder
	for _, p := range d.patterns {
		b.WriteString(string(p.Label))
		b.WriteByte('=')
		b.WriteString(p.Regex.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Labels lists the labels this detector can emit.
func (d *RegexDetector) Labels() []Label {
	out := make([]Label, 0, len(d.patterns))
	for _, p := range d.patterns {
		out = append(out, p.Label)
	}
	return out
}

// wordBoundary reports whether offset i separates a word character from a
// non-word one, counting any Unicode letter or number as a word character.
func wordBoundary(text string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:i])
		before = isWordRune(r)
	}
	if i < len(text) {
		r, _ := utf8.DecodeRuneInString(text[i:])
		after = isWordRune(r)
	}
	return before != after
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
