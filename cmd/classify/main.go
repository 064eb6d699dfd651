package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/noah-isme/email-classifier-api/internal/bootstrap"
	"github.com/noah-isme/email-classifier-api/internal/config"
	"github.com/noah-isme/email-classifier-api/internal/models"
	"github.com/noah-isme/email-classifier-api/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Printf("classify: %v", err)
		os.Exit(1)
	}
}

// run keeps every deferred close inside its frame so an error exit still
// releases the NER session.
func run(args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := pflag.NewFlagSet("classify", pflag.ContinueOnError)
	text := flags.StringP("text", "t", "", "email body to classify; read from stdin when empty")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	body := *text
	if body == "" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		body = string(raw)
	}

	// Logs go to stderr so stdout carries only the JSON document.
	logger := bootstrap.NewLogger(cfg, os.Stderr)

	masker, closeMasker, err := bootstrap.NewMasker(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build masker: %w", err)
	}
	defer closeMasker()

	categories, err := bootstrap.BatchCategories(cfg)
	if err != nil {
		return fmt.Errorf("invalid category table: %w", err)
	}
	pipeline, err := bootstrap.LoadPipeline(cfg, categories)
	if err != nil {
		return fmt.Errorf("failed to load model artifacts: %w", err)
	}

	svc := service.NewClassificationService(masker, pipeline, nil, logger, service.ClassificationOptions{
		EntryPoint: models.EntryPointBatch,
	})

	out, err := svc.ClassifyJSON(context.Background(), body)
	if err != nil {
		logger.Error().Err(err).Msg("classification failed")
		return err
	}
	_, err = fmt.Fprintln(stdout, out)
	return err
}
