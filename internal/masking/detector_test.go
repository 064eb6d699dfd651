package masking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegexDetectorPatterns(t *testing.T) {
	cases := []struct {
		label   Label
		text    string
		matches []string
	}{
		{label: LabelEmail, text: "write to first.last+tag@mail.example.co.in now", matches: []string{"first.last+tag@mail.example.co.in"}},
		{label: LabelPhoneNumber, text: "call 9876543210 or 09876543210", matches: []string{"9876543210", "09876543210"}},
		{label: LabelPhoneNumber, text: "ref 98765432101", matches: nil},
		{label: LabelDOB, text: "born 1/2/1990 and 21-11-85", matches: []string{"1/2/1990", "21-11-85"}},
		{label: LabelAadhar, text: "aadhar 1234 5678 9012 and 123456789012", matches: []string{"1234 5678 9012", "123456789012"}},
		{label: LabelCreditDebitNo, text: "card 4111-1111-1111-1111", matches: []string{"4111-1111-1111-1111"}},
		{label: LabelCVV, text: "cvv 321, pin 4321", matches: []string{"321"}},
		{label: LabelExpiry, text: "valid till 12/2027 not 13/27", matches: []string{"12/2027"}},
		{label: LabelCVV, text: "é123, 456ü and ü 789", matches: []string{"789"}},
		{label: LabelEmail, text: "jöhn@x.com", matches: nil},
		{label: LabelPhoneNumber, text: "ग9876543210", matches: nil},
	}

	for _, tc := range cases {
		t.Run(string(tc.label)+": "+tc.text, func(t *testing.T) {
			d := NewRegexDetector(WithPatterns(patternFor(t, tc.label)))
			spans, err := d.Detect(context.Background(), tc.text)
			require.NoError(t, err)

			var got []string
			for _, s := range spans {
				require.Equal(t, tc.label, s.Label)
				got = append(got, tc.text[s.Start:s.End])
			}
			require.Equal(t, tc.matches, got)
		})
	}
}

func TestRegexDetectorReportsEveryPatternIndependently(t *testing.T) {
	spans, err := NewRegexDetector().Detect(context.Background(), "1234 5678 9012 3456")
	require.NoError(t, err)
	require.Len(t, spans, 2)
	require.Equal(t, LabelAadhar, spans[0].Label)
	require.Equal(t, LabelCreditDebitNo, spans[1].Label)
}

func TestRegexDetectorUnicodeWordBoundaries(t *testing.T) {
	spans, err := NewRegexDetector().Detect(context.Background(), "é123")
	require.NoError(t, err)
	require.Empty(t, spans)

	require.True(t, wordBoundary("a b", 1))
	require.False(t, wordBoundary("ö1", len("ö")))
	require.True(t, wordBoundary("ö.", len("ö")))
	require.True(t, wordBoundary("x", 0))
	require.False(t, wordBoundary("", 0))
}

func TestRegexDetectorLabels(t *testing.T) {
	d := NewRegexDetector(WithoutLabels(LabelCVV, LabelDOB))
	require.Equal(t, []Label{LabelEmail, LabelPhoneNumber, LabelAadhar, LabelCreditDebitNo, LabelExpiry}, d.Labels())
	require.Len(t, NewRegexDetector().Labels(), 7)
}

func patternFor(t *testing.T, label Label) Pattern {
	t.Helper()
	for _, p := range DefaultPatterns() {
		if p.Label == label {
			return p
		}
	}
	t.Fatalf("no pattern for %s", label)
	return Pattern{}
}
