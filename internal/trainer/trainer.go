// Package trainer fits the vectorizer and cluster model from a CSV dataset
// of raw email bodies.
package trainer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/email-classifier-api/internal/classifier"
	"github.com/noah-isme/email-classifier-api/internal/masking"
)

// ClusteredFileName is the per-row assignment report written next to the
// artifacts.
const ClusteredFileName = "clustered_emails.csv"

var (
	// ErrUnsupportedDataset indicates the dataset is not delimited text.
	ErrUnsupportedDataset = errors.New("dataset is not a CSV file")
	// ErrMissingColumn indicates the configured text column is absent.
	ErrMissingColumn = errors.New("dataset is missing the text column")
)

// Masker hides PII before training so the model never sees raw values.
type Masker interface {
	Mask(ctx context.Context, text string) (masking.Result, error)
}

// Options controls a training run.
type Options struct {
	DatasetPath    string
	TextColumn     string
	OutputDir      string
	VectorizerPath string
	KMeansPath     string
	KMeans         classifier.KMeansOptions
	ProgressEvery  int
}

// Report summarises a finished run.
type Report struct {
	Rows           int
	Features       int
	ClusterSizes   map[int]int
	MaskDuration   time.Duration
	FitDuration    time.Duration
	VectorizerPath string
	KMeansPath     string
	ClusteredPath  string
}

// Trainer runs the fit pipeline.
type Trainer struct {
	masker Masker
	logger zerolog.Logger
}

// New constructs a trainer.
func New(masker Masker, logger zerolog.Logger) *Trainer {
	return &Trainer{
		masker: masker,
		logger: logger.With().Str("component", "trainer").Logger(),
	}
}

// Train masks every row, fits the models, writes both artifacts and the
// clustered copy of the dataset.
func (t *Trainer) Train(ctx context.Context, opts Options) (Report, error) {
	opts = withDefaults(opts)
	t.logger.Info().Str("dataset", opts.DatasetPath).Int("n_clusters", opts.KMeans.NClusters).Msg("starting unsupervised model training")

	header, rows, err := readDataset(opts.DatasetPath)
	if err != nil {
		return Report{}, err
	}
	column := columnIndex(header, opts.TextColumn)
	if column < 0 {
		return Report{}, fmt.Errorf("%w: %q", ErrMissingColumn, opts.TextColumn)
	}
	t.logger.Info().Int("rows", len(rows)).Msg("loaded emails from dataset")

	started := time.Now()
	masked := make([]string, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		text := ""
		if column < len(row) {
			text = row[column]
		}
		result, err := t.masker.Mask(ctx, text)
		if err != nil {
			return Report{}, fmt.Errorf("mask row %d: %w", i+1, err)
		}
		masked[i] = result.Masked
		if i > 0 && i%opts.ProgressEvery == 0 {
			t.logger.Info().Int("processed", i).Msg("masking progress")
		}
	}
	maskDuration := time.Since(started)
	t.logger.Info().Dur("duration", maskDuration).Msg("pii masking completed")

	started = time.Now()
	vectorizer, err := classifier.FitVectorizer(masked, classifier.DefaultVectorizerOptions())
	if err != nil {
		return Report{}, err
	}
	data := make([]classifier.SparseVector, len(masked))
	for i, doc := range masked {
		data[i] = vectorizer.Transform(doc)
	}
	t.logger.Info().Int("rows", len(data)).Int("features", vectorizer.Dim()).Msg("vectorization complete")

	model, labels, err := classifier.FitKMeans(data, vectorizer.Dim(), opts.KMeans)
	if err != nil {
		return Report{}, err
	}
	fitDuration := time.Since(started)
	t.logger.Info().Dur("duration", fitDuration).Msg("kmeans training complete")

	if err := classifier.SaveVectorizer(opts.VectorizerPath, vectorizer); err != nil {
		return Report{}, err
	}
	if err := classifier.SaveKMeans(opts.KMeansPath, model); err != nil {
		return Report{}, err
	}
	t.logger.Info().Str("vectorizer", opts.VectorizerPath).Str("kmeans", opts.KMeansPath).Msg("model and vectorizer saved")

	clusteredPath := filepath.Join(opts.OutputDir, ClusteredFileName)
	if err := writeClustered(clusteredPath, header, rows, labels); err != nil {
		return Report{}, err
	}
	t.logger.Info().Str("path", clusteredPath).Msg("cluster assignments saved")

	sizes := make(map[int]int, model.NClusters())
	for _, label := range labels {
		sizes[label]++
	}

	return Report{
		Rows:           len(rows),
		Features:       vectorizer.Dim(),
		ClusterSizes:   sizes,
		MaskDuration:   maskDuration,
		FitDuration:    fitDuration,
		VectorizerPath: opts.VectorizerPath,
		KMeansPath:     opts.KMeansPath,
		ClusteredPath:  clusteredPath,
	}, nil
}

func withDefaults(opts Options) Options {
	if opts.TextColumn == "" {
		opts.TextColumn = "email"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.VectorizerPath == "" {
		opts.VectorizerPath = filepath.Join(opts.OutputDir, "tfidf_vectorizer.json")
	}
	if opts.KMeansPath == "" {
		opts.KMeansPath = filepath.Join(opts.OutputDir, "email_kmeans.json")
	}
	if opts.KMeans.NClusters <= 0 {
		opts.KMeans = classifier.DefaultKMeansOptions()
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 1000
	}
	return opts
}

func readDataset(path string) ([]string, [][]string, error) {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	if !mime.Is("text/csv") && !mime.Is("text/plain") {
		return nil, nil, fmt.Errorf("%w: detected %s", ErrUnsupportedDataset, mime.String())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: file is empty", ErrUnsupportedDataset)
		}
		return nil, nil, fmt.Errorf("failed to read dataset header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read dataset: %w", err)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// writeClustered copies the dataset with a trailing cluster column, or
// overwrites an existing one.
func writeClustered(path string, header []string, rows [][]string, labels []int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	clusterCol := columnIndex(header, "cluster")
	outHeader := append([]string(nil), header...)
	if clusterCol < 0 {
		clusterCol = len(outHeader)
		outHeader = append(outHeader, "cluster")
	}

	w := csv.NewWriter(f)
	if err := w.Write(outHeader); err != nil {
		return err
	}
	for i, row := range rows {
		out := make([]string, len(outHeader))
		copy(out, row)
		out[clusterCol] = strconv.Itoa(labels[i])
		if err := w.Write(out); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
