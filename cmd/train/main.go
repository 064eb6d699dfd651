package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/noah-isme/email-classifier-api/internal/bootstrap"
	"github.com/noah-isme/email-classifier-api/internal/classifier"
	"github.com/noah-isme/email-classifier-api/internal/config"
	"github.com/noah-isme/email-classifier-api/internal/trainer"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Printf("train: %v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := pflag.NewFlagSet("train", pflag.ContinueOnError)
	dataset := flags.String("dataset", cfg.Train.DatasetPath, "CSV file with one email per row")
	column := flags.String("column", cfg.Train.TextColumn, "name of the column holding the email body")
	clusters := flags.Int("n-clusters", cfg.Train.NClusters, "number of clusters to fit")
	maxIter := flags.Int("max-iter", cfg.Train.MaxIter, "maximum k-means iterations")
	seed := flags.Int64("seed", cfg.Train.Seed, "random seed for centroid initialisation")
	output := flags.String("output", cfg.Train.OutputDir, "directory for the clustered dataset")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := bootstrap.NewLogger(cfg, os.Stdout)

	masker, closeMasker, err := bootstrap.NewMasker(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build masker: %w", err)
	}
	defer closeMasker()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := trainer.New(masker, logger).Train(ctx, trainer.Options{
		DatasetPath:    *dataset,
		TextColumn:     *column,
		OutputDir:      *output,
		VectorizerPath: cfg.Model.VectorizerPath,
		KMeansPath:     cfg.Model.KMeansPath,
		KMeans: classifier.KMeansOptions{
			NClusters: *clusters,
			MaxIter:   *maxIter,
			Seed:      *seed,
		},
	})
	if err != nil {
		logger.Error().Err(err).Msg("training failed")
		return err
	}

	event := logger.Info().
		Int("rows", report.Rows).
		Int("features", report.Features).
		Dur("mask_duration", report.MaskDuration).
		Dur("fit_duration", report.FitDuration).
		Str("clustered", report.ClusteredPath)
	for id, size := range report.ClusterSizes {
		event = event.Int("cluster_"+strconv.Itoa(id), size)
	}
	event.Msg("training finished")
	return nil
}
