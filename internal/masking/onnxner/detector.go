// Package onnxner finds person names with a BERT token-classification model
// executed through ONNX Runtime.
package onnxner

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/email-classifier-api/internal/masking"
)

const defaultMaxSequence = 128

// Options locates the model files.
type Options struct {
	ModelPath   string
	VocabPath   string
	LabelsPath  string
	RuntimePath string
	// Lowercase must match how the model was trained; uncased checkpoints
	// also get accents stripped.
	Lowercase   bool
	MaxSequence int
	Threads     int
}

// Detector implements masking.Detector on top of a token classifier.
type Detector struct {
	tok       *tokenizer
	tagger    tagger
	labels    []string
	maxPieces int
	source    string
}

// New loads the vocabulary, the label table and the ONNX model.
func New(opts Options) (*Detector, error) {
	v, err := loadVocab(opts.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("onnxner: %w", err)
	}
	labels, err := loadLabels(opts.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("onnxner: %w", err)
	}
	session, err := newONNXSession(opts.ModelPath, opts.RuntimePath, opts.Threads)
	if err != nil {
		return nil, fmt.Errorf("onnxner: %w", err)
	}
	if session.numLabels() != len(labels) {
		_ = session.close()
		return nil, fmt.Errorf("onnxner: model emits %d labels but %s lists %d", session.numLabels(), opts.LabelsPath, len(labels))
	}
	d := newDetector(&tokenizer{vocab: v, lowercase: opts.Lowercase}, session, labels, opts.MaxSequence)
	d.source = opts.ModelPath + "|" + opts.VocabPath
	return d, nil
}

func newDetector(tok *tokenizer, t tagger, labels []string, maxSequence int) *Detector {
	if maxSequence <= 2 {
		maxSequence = defaultMaxSequence
	}
	return &Detector{tok: tok, tagger: t, labels: labels, maxPieces: maxSequence - 2}
}

// Name identifies the detector in logs and health output.
func (d *Detector) Name() string { return "onnx-ner" }

// Fingerprint describes the loaded model files and decoding settings.
func (d *Detector) Fingerprint() string {
	return fmt.Sprintf("%s|lower=%t|pieces=%d|labels=%s", d.source, d.tok.lowercase, d.maxPieces, strings.Join(d.labels, ","))
}

// Detect returns every person-name span found in text.
func (d *Detector) Detect(ctx context.Context, text string) ([]masking.Span, error) {
	words := splitWords(text)
	if len(words) == 0 {
		return nil, nil
	}

	wordTags := make([]string, len(words))
	for i := range wordTags {
		wordTags[i] = "O"
	}

	for _, window := range windows(d.tok.pieces(words), d.maxPieces) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, mask, types := d.tok.encode(window)
		logits, err := d.tagger.tag(ids, mask, types)
		if err != nil {
			return nil, fmt.Errorf("onnxner: %w", err)
		}
		best := argmax(logits, d.tagger.numLabels())
		for i, p := range window {
			pos := i + 1 // skip [CLS]
			if !p.first || pos >= len(best) || best[pos] >= len(d.labels) {
				continue
			}
			wordTags[p.wordIndex] = d.labels[best[pos]]
		}
	}

	var out []masking.Span
	for _, s := range decodePersons(words, wordTags) {
		out = append(out, masking.Span{Start: s.start, End: s.end, Label: masking.LabelFullName})
	}
	return out, nil
}

// Close releases the ONNX session.
func (d *Detector) Close() error {
	if d.tagger == nil {
		return nil
	}
	return d.tagger.close()
}
