package bootstrap

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/email-classifier-api/internal/classifier"
	"github.com/noah-isme/email-classifier-api/internal/config"
)

func baseConfig() config.Config {
	return config.Config{
		AppName: "test",
		Masking: config.MaskingConfig{OverlapPolicy: "legacy"},
		NER:     config.NERConfig{Backend: "heuristic"},
		Model: config.ModelConfig{
			APICategories:   "0:Incident,1:Request,2:Change,3:Problem",
			BatchCategories: "0:Request,1:Incident,2:Change,3:Problem",
		},
	}
}

func TestNewLoggerLevel(t *testing.T) {
	cfg := baseConfig()
	cfg.LogLevel = "warn"
	var buf bytes.Buffer
	logger := NewLogger(cfg, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"service":"test"`)

	cfg.LogLevel = "chatty"
	require.Equal(t, zerolog.InfoLevel, NewLogger(cfg, &buf).GetLevel())
}

func TestNewMaskerDefault(t *testing.T) {
	masker, closeFn, err := NewMasker(baseConfig(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, closeFn())
	require.Equal(t, []string{"regex", "names"}, masker.Detectors())

	result, err := masker.Mask(context.Background(), "Regards, Rahul Verma. PIN 4321, cvv 999")
	require.NoError(t, err)
	require.Equal(t, "Regards, [full_name]. PIN 4321, cvv [cvv_no]", result.Masked)
}

func TestNewMaskerDisabledLabels(t *testing.T) {
	cfg := baseConfig()
	cfg.Masking.DisabledLabels = []string{"cvv_no", "full_name"}
	cfg.Masking.OverlapPolicy = "merge"

	masker, _, err := NewMasker(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, []string{"regex"}, masker.Detectors())

	result, err := masker.Mask(context.Background(), "Order 123 for Jane Doe")
	require.NoError(t, err)
	require.Equal(t, "Order 123 for Jane Doe", result.Masked)
}

func TestNewMaskerRejectsBadConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.Masking.DisabledLabels = []string{"ssn"}
	_, _, err := NewMasker(cfg, zerolog.Nop())
	require.Error(t, err)

	cfg = baseConfig()
	cfg.Masking.OverlapPolicy = "newest"
	_, _, err = NewMasker(cfg, zerolog.Nop())
	require.Error(t, err)

	cfg = baseConfig()
	cfg.NER.Backend = "onnx"
	cfg.NER.VocabPath = filepath.Join(t.TempDir(), "missing.txt")
	_, _, err = NewMasker(cfg, zerolog.Nop())
	require.ErrorIs(t, err, classifier.ErrModelLoad)
}

func TestLoadPipelineUsesConfiguredTables(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig()
	cfg.Model.VectorizerPath = filepath.Join(dir, "tfidf_vectorizer.json")
	cfg.Model.KMeansPath = filepath.Join(dir, "email_kmeans.json")

	_, err := LoadPipeline(cfg, classifier.DefaultAPICategories())
	require.ErrorIs(t, err, classifier.ErrModelLoad)

	vectorizer, err := classifier.FitVectorizer([]string{"outage network", "refund invoice"}, classifier.DefaultVectorizerOptions())
	require.NoError(t, err)
	model, err := classifier.NewKMeans([][]float64{
		{0, 0.7071, 0.7071, 0},
		{0.7071, 0, 0, 0.7071},
	})
	require.NoError(t, err)
	pipeline, err := classifier.NewPipeline(vectorizer, model, classifier.DefaultAPICategories())
	require.NoError(t, err)
	require.NoError(t, pipeline.Save(cfg.Model.VectorizerPath, cfg.Model.KMeansPath))

	api, err := APICategories(cfg)
	require.NoError(t, err)
	batch, err := BatchCategories(cfg)
	require.NoError(t, err)

	served, err := LoadPipeline(cfg, api)
	require.NoError(t, err)
	require.Equal(t, "Request", served.Predict("refund invoice").Category)

	offline, err := LoadPipeline(cfg, batch)
	require.NoError(t, err)
	require.Equal(t, "Incident", offline.Predict("refund invoice").Category)
}
