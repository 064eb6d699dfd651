package trainer

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/email-classifier-api/internal/classifier"
	"github.com/noah-isme/email-classifier-api/internal/masking"
)

const dataset = `id,email,type
1,"Server outage, network down since morning. Call 9876543210",Incident
2,"Network outage again, server down for Jane Doe",Incident
3,"server down network outage reported by rahul@example.com",Incident
4,"Please send invoice and refund payment for billing",Request
5,"Refund payment needed, invoice billing wrong",Request
6,"Billing invoice refund payment request from Priya Sharma",Request
`

func writeDataset(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "email_dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTrainWritesArtifactsAndAssignments(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	tr := New(masking.NewDefaultMasker(), zerolog.New(&logs))

	report, err := tr.Train(context.Background(), Options{
		DatasetPath:   writeDataset(t, dir, dataset),
		OutputDir:     filepath.Join(dir, "out"),
		KMeans:        classifier.KMeansOptions{NClusters: 2, MaxIter: 100, Seed: 42},
		ProgressEvery: 2,
	})
	require.NoError(t, err)
	require.Equal(t, 6, report.Rows)
	require.Greater(t, report.Features, 0)
	require.Len(t, report.ClusterSizes, 2)
	require.Contains(t, logs.String(), "masking progress")

	pipeline, err := classifier.LoadPipeline(report.VectorizerPath, report.KMeansPath, classifier.DefaultAPICategories())
	require.NoError(t, err)
	require.Equal(t, 2, pipeline.NClusters())

	vectorizerJSON, err := os.ReadFile(report.VectorizerPath)
	require.NoError(t, err)
	require.NotContains(t, string(vectorizerJSON), "9876543210")
	require.NotContains(t, string(vectorizerJSON), "rahul")

	f, err := os.Open(report.ClusteredPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 7)
	require.Equal(t, []string{"id", "email", "type", "cluster"}, records[0])

	clusterOf := func(row int) string { return records[row][3] }
	require.Equal(t, clusterOf(1), clusterOf(2))
	require.Equal(t, clusterOf(1), clusterOf(3))
	require.Equal(t, clusterOf(4), clusterOf(5))
	require.Equal(t, clusterOf(4), clusterOf(6))
	require.NotEqual(t, clusterOf(1), clusterOf(4))
	require.Contains(t, records[1][1], "9876543210")
}

func TestTrainOverwritesExistingClusterColumn(t *testing.T) {
	dir := t.TempDir()
	content := strings.Replace(dataset, "id,email,type", "id,email,cluster", 1)
	tr := New(masking.NewDefaultMasker(), zerolog.Nop())

	report, err := tr.Train(context.Background(), Options{
		DatasetPath: writeDataset(t, dir, content),
		OutputDir:   dir,
		KMeans:      classifier.KMeansOptions{NClusters: 2, Seed: 42},
	})
	require.NoError(t, err)

	f, err := os.Open(report.ClusteredPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"id", "email", "cluster"}, records[0])
	for _, row := range records[1:] {
		require.Contains(t, []string{"0", "1"}, row[2])
	}
}

func TestTrainErrors(t *testing.T) {
	tr := New(masking.NewDefaultMasker(), zerolog.Nop())
	dir := t.TempDir()

	_, err := tr.Train(context.Background(), Options{
		DatasetPath: writeDataset(t, dir, "id,body\n1,hello there\n2,general kenobi\n"),
		OutputDir:   dir,
	})
	require.ErrorIs(t, err, ErrMissingColumn)

	png := filepath.Join(dir, "image.csv")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o644))
	_, err = tr.Train(context.Background(), Options{DatasetPath: png, OutputDir: dir})
	require.ErrorIs(t, err, ErrUnsupportedDataset)

	_, err = tr.Train(context.Background(), Options{
		DatasetPath: writeDataset(t, dir, "email\nhello outage\n"),
		OutputDir:   dir,
		KMeans:      classifier.KMeansOptions{NClusters: 4},
	})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Train(ctx, Options{DatasetPath: writeDataset(t, dir, dataset), OutputDir: dir})
	require.ErrorIs(t, err, context.Canceled)
}
