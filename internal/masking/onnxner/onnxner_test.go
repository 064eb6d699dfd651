package onnxner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/email-classifier-api/internal/masking"
)

var testVocabTokens = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]",
	"hello", "my", "name", "is", "jane", "doe", ",", ".", "call", "priya", "sha", "##rma", "cafe", "today",
}

func writeVocab(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(testVocabTokens, "\n")+"\n"), 0o644))
	return path
}

func testTokenizer(t *testing.T) *tokenizer {
	t.Helper()
	v, err := loadVocab(writeVocab(t))
	require.NoError(t, err)
	return &tokenizer{vocab: v, lowercase: true}
}

// personTagger marks every token whose id is in persons as B-PER or I-PER.
type personTagger struct {
	begin map[int64]bool
	inner map[int64]bool
	calls int
}

var testLabels = []string{"O", "B-PER", "I-PER", "B-LOC"}

func (p *personTagger) numLabels() int { return len(testLabels) }
func (p *personTagger) close() error   { return nil }

func (p *personTagger) tag(ids, mask, types []int64) ([]float32, error) {
	p.calls++
	out := make([]float32, len(ids)*len(testLabels))
	for i, id := range ids {
		label := 0
		switch {
		case p.begin[id]:
			label = 1
		case p.inner[id]:
			label = 2
		}
		out[i*len(testLabels)+label] = 1
	}
	return out, nil
}

func TestLoadVocab(t *testing.T) {
	v, err := loadVocab(writeVocab(t))
	require.NoError(t, err)
	require.Equal(t, len(testVocabTokens), v.size)
	require.Equal(t, int64(2), v.clsID)
	require.Equal(t, int64(3), v.sepID)
	require.Equal(t, v.unkID, v.lookup("zebra"))

	missing := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(missing, []byte("hello\n"), 0o644))
	_, err = loadVocab(missing)
	require.Error(t, err)
}

func TestSplitWordsKeepsOffsets(t *testing.T) {
	text := "Hi,  Jané\tDoe."
	words := splitWords(text)
	got := make([]string, len(words))
	for i, w := range words {
		got[i] = w.text
		require.Equal(t, w.text, text[w.start:w.end])
	}
	require.Equal(t, []string{"Hi", ",", "Jané", "Doe", "."}, got)
}

func TestWordpieceAndAccents(t *testing.T) {
	tok := testTokenizer(t)
	require.Equal(t, []string{"sha", "##rma"}, tok.wordpiece("sharma"))
	require.Equal(t, []string{"[UNK]"}, tok.wordpiece("xyz"))

	pieces := tok.pieces(splitWords("Café Sharma"))
	require.Len(t, pieces, 3)
	require.Equal(t, tok.vocab.lookup("cafe"), pieces[0].id)
	require.True(t, pieces[1].first)
	require.False(t, pieces[2].first)
	require.Equal(t, 1, pieces[2].wordIndex)
}

func TestWindowsDoNotSplitWords(t *testing.T) {
	pieces := []piece{
		{wordIndex: 0, first: true},
		{wordIndex: 1, first: true},
		{wordIndex: 1},
		{wordIndex: 1},
		{wordIndex: 2, first: true},
	}
	got := windows(pieces, 3)
	require.Len(t, got, 3)
	require.Len(t, got[0], 1)
	require.Len(t, got[1], 3)
	require.Len(t, got[2], 1)
}

func TestParseLabels(t *testing.T) {
	list, err := parseLabels([]byte(`["O","B-PER","I-PER"]`))
	require.NoError(t, err)
	require.Equal(t, []string{"O", "B-PER", "I-PER"}, list)

	byID, err := parseLabels([]byte(`{"1":"B-PER","0":"O"}`))
	require.NoError(t, err)
	require.Equal(t, []string{"O", "B-PER"}, byID)

	wrapped, err := parseLabels([]byte(`{"id2label":{"0":"O","1":"B-PERSON"}}`))
	require.NoError(t, err)
	require.Equal(t, []string{"O", "B-PERSON"}, wrapped)

	_, err = parseLabels([]byte(`{"0":"O","2":"B-PER"}`))
	require.Error(t, err)
	_, err = parseLabels([]byte(`[]`))
	require.Error(t, err)
}

func TestDecodePersons(t *testing.T) {
	words := splitWords("Jane Doe met Priya in Pune")
	tags := []string{"B-PER", "I-PER", "O", "I-PER", "O", "B-LOC"}
	spans := decodePersons(words, tags)
	require.Equal(t, []span{{0, 8}, {13, 18}}, spans)

	require.Equal(t, []span{{0, 4}, {5, 8}}, decodePersons(words[:2], []string{"B-PER", "B-PER"}))
}

func TestDetectorFindsNames(t *testing.T) {
	tok := testTokenizer(t)
	tagger := &personTagger{
		begin: map[int64]bool{tok.vocab.lookup("jane"): true, tok.vocab.lookup("priya"): true},
		inner: map[int64]bool{tok.vocab.lookup("doe"): true, tok.vocab.lookup("sha"): true, tok.vocab.lookup("##rma"): true},
	}
	d := newDetector(tok, tagger, testLabels, 0)

	text := "Hello, my name is Jane Doe. Call Priya Sharma today."
	spans, err := d.Detect(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, spans, 2)
	require.Equal(t, "Jane Doe", text[spans[0].Start:spans[0].End])
	require.Equal(t, "Priya Sharma", text[spans[1].Start:spans[1].End])
	for _, s := range spans {
		require.Equal(t, masking.LabelFullName, s.Label)
	}
}

func TestDetectorWindowsLongInput(t *testing.T) {
	tok := testTokenizer(t)
	tagger := &personTagger{begin: map[int64]bool{tok.vocab.lookup("jane"): true}}
	d := newDetector(tok, tagger, testLabels, 4)

	text := "hello hello hello hello Jane hello"
	spans, err := d.Detect(context.Background(), text)
	require.NoError(t, err)
	require.Equal(t, 3, tagger.calls)
	require.Len(t, spans, 1)
	require.Equal(t, "Jane", text[spans[0].Start:spans[0].End])
}

func TestDetectorRespectsCancellation(t *testing.T) {
	d := newDetector(testTokenizer(t), &personTagger{}, testLabels, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Detect(ctx, "hello Jane")
	require.ErrorIs(t, err, context.Canceled)

	spans, err := d.Detect(context.Background(), "   ")
	require.NoError(t, err)
	require.Empty(t, spans)
}

func TestDetectorPlugsIntoMasker(t *testing.T) {
	tok := testTokenizer(t)
	tagger := &personTagger{
		begin: map[int64]bool{tok.vocab.lookup("jane"): true},
		inner: map[int64]bool{tok.vocab.lookup("doe"): true},
	}
	masker := masking.NewMasker(masking.OverlapLegacy, masking.NewRegexDetector(), newDetector(tok, tagger, testLabels, 0))

	result, err := masker.Mask(context.Background(), "my name is Jane Doe, mail info@example.com")
	require.NoError(t, err)
	require.Equal(t, "my name is [full_name], mail [email]", result.Masked)
}

func TestDetectorFingerprintChangesMaskerFingerprint(t *testing.T) {
	tok := testTokenizer(t)
	regexOnly := masking.NewMasker(masking.OverlapLegacy, masking.NewRegexDetector(), masking.NewNameDetector())
	withNER := masking.NewMasker(masking.OverlapLegacy, masking.NewRegexDetector(), newDetector(tok, &personTagger{}, testLabels, 0))
	require.NotEqual(t, regexOnly.Fingerprint(), withNER.Fingerprint())

	short := newDetector(tok, &personTagger{}, testLabels, 16)
	require.NotEqual(t, newDetector(tok, &personTagger{}, testLabels, 0).Fingerprint(), short.Fingerprint())
}

func TestNewWithRealModel(t *testing.T) {
	dir := os.Getenv("MAILSORT_TEST_NER_DIR")
	if dir == "" {
		t.Skip("MAILSORT_TEST_NER_DIR not set; skipping ONNX runtime test")
	}

	d, err := New(Options{
		ModelPath:   filepath.Join(dir, "model.onnx"),
		VocabPath:   filepath.Join(dir, "vocab.txt"),
		LabelsPath:  filepath.Join(dir, "labels.json"),
		RuntimePath: filepath.Join(dir, "libonnxruntime.so"),
	})
	require.NoError(t, err)
	defer d.Close()

	text := "Please contact John Smith about the outage."
	spans, err := d.Detect(context.Background(), text)
	require.NoError(t, err)
	require.NotEmpty(t, spans)
	require.Contains(t, text[spans[0].Start:spans[0].End], "John")
}
