// Package bootstrap builds the shared runtime pieces used by every command:
// the logger, the masker and the classification pipeline.
package bootstrap

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/email-classifier-api/internal/classifier"
	"github.com/noah-isme/email-classifier-api/internal/config"
	"github.com/noah-isme/email-classifier-api/internal/masking"
	"github.com/noah-isme/email-classifier-api/internal/masking/onnxner"
)

// NewLogger returns the root logger writing JSON lines to w (stdout when nil).
func NewLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()
}

// NewMasker assembles the detectors selected by configuration. The returned
// close func releases model resources and is never nil.
func NewMasker(cfg config.Config, logger zerolog.Logger) (*masking.Masker, func() error, error) {
	noop := func() error { return nil }

	policy, err := masking.ParseOverlapPolicy(cfg.Masking.OverlapPolicy)
	if err != nil {
		return nil, noop, err
	}

	disabled := make([]masking.Label, 0, len(cfg.Masking.DisabledLabels))
	namesOff := false
	for _, raw := range cfg.Masking.DisabledLabels {
		label := masking.Label(strings.ToLower(strings.TrimSpace(raw)))
		if !label.Valid() {
			return nil, noop, fmt.Errorf("unknown entity label %q in masking.disabled_labels", raw)
		}
		if label == masking.LabelFullName {
			namesOff = true
			continue
		}
		disabled = append(disabled, label)
	}

	detectors := []masking.Detector{masking.NewRegexDetector(masking.WithoutLabels(disabled...))}
	closer := noop

	backend := cfg.NER.Backend
	if namesOff {
		backend = "none"
	}
	switch backend {
	case "", "heuristic":
		detectors = append(detectors, masking.NewNameDetector(cfg.NER.ExtraNames...))
	case "onnx":
		ner, err := onnxner.New(onnxner.Options{
			ModelPath:   cfg.NER.ModelPath,
			VocabPath:   cfg.NER.VocabPath,
			LabelsPath:  cfg.NER.LabelsPath,
			RuntimePath: cfg.NER.RuntimePath,
			Lowercase:   cfg.NER.Lowercase,
			MaxSequence: cfg.NER.MaxSequence,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("%w: %v", classifier.ErrModelLoad, err)
		}
		detectors = append(detectors, ner)
		closer = ner.Close
	case "none":
	default:
		return nil, noop, fmt.Errorf("unknown ner backend %q", backend)
	}

	masker := masking.NewMasker(policy, detectors...)
	logger.Info().
		Str("component", "bootstrap").
		Strs("detectors", masker.Detectors()).
		Str("overlap_policy", string(masker.Policy())).
		Msg("masker ready")
	return masker, closer, nil
}

// APICategories parses the category table served over HTTP.
func APICategories(cfg config.Config) (classifier.CategoryMap, error) {
	return classifier.ParseCategoryMap(cfg.Model.APICategories, classifier.DefaultAPICategories())
}

// BatchCategories parses the category table used by the batch command.
func BatchCategories(cfg config.Config) (classifier.CategoryMap, error) {
	return classifier.ParseCategoryMap(cfg.Model.BatchCategories, classifier.DefaultBatchCategories())
}

// LoadPipeline reads the fitted artifacts named by configuration.
func LoadPipeline(cfg config.Config, categories classifier.CategoryMap) (*classifier.Pipeline, error) {
	return classifier.LoadPipeline(cfg.Model.VectorizerPath, cfg.Model.KMeansPath, categories)
}
