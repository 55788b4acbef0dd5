package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mynkchaudhry/VendorDocComparsion/aggregate"
	"github.com/mynkchaudhry/VendorDocComparsion/chunking"
	"github.com/mynkchaudhry/VendorDocComparsion/config"
	"github.com/mynkchaudhry/VendorDocComparsion/core"
	"github.com/mynkchaudhry/VendorDocComparsion/extract"
	"github.com/mynkchaudhry/VendorDocComparsion/inference"
	"github.com/mynkchaudhry/VendorDocComparsion/inference/openai"
	"github.com/mynkchaudhry/VendorDocComparsion/memgov"
	"github.com/mynkchaudhry/VendorDocComparsion/pipeline"
	"github.com/mynkchaudhry/VendorDocComparsion/task"
)

func main() {
	app := &cli.App{
		Name:      "docproc",
		Usage:     "Process a vendor document and print the structured record",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "Document type (pdf, docx, xlsx); defaults to the file extension",
			},
		},
		Before: setupLogger,
		Action: processCommand,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func processCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one file argument is required")
	}
	path := c.Args().First()

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fileType := c.String("type")
	if fileType == "" {
		fileType = filepath.Ext(path)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	extractor, err := openai.NewFragmentExtractor(
		cfg.Inference.Host, cfg.Inference.Model, cfg.Inference.APIKey, cfg.Inference.Temperature)
	if err != nil {
		return fmt.Errorf("inference backend: %w", err)
	}

	client, err := inference.NewClient(extractor,
		inference.WithRetryPolicy(cfg.Inference.MaxRetries, cfg.Inference.RetryDelay),
		inference.WithCallTimeout(cfg.Inference.CallTimeout),
		inference.WithQualityThreshold(cfg.Processing.QualityThreshold))
	if err != nil {
		return err
	}

	// One-shot runs keep everything in memory; nothing needs to
	// survive the process.
	tasks, err := task.NewManager(task.NewMemoryStore())
	if err != nil {
		return err
	}
	docs := pipeline.NewMemoryDocumentStore()

	orch, err := pipeline.NewOrchestrator(pipeline.Deps{
		Registry: extract.NewRegistry(),
		Governor: memgov.New(memgov.WithNormalLimits(memgov.Limits{
			MaxChunkWords:       cfg.Processing.MaxChunkSize,
			MaxConcurrentChunks: cfg.Processing.MaxConcurrentChunks,
		})),
		Chunker:   chunking.NewEngine(cfg.Processing.ChunkOverlap),
		Inference: client,
		Merger:    aggregate.NewMerger(),
		Tasks:     tasks,
		Documents: docs,
	},
		pipeline.WithProcessingTimeout(cfg.Processing.ProcessingTimeout),
		pipeline.WithFailureRatio(cfg.Processing.FailureRatio),
		pipeline.WithFastPathThreshold(cfg.Processing.FastPathThreshold))
	if err != nil {
		return err
	}
	defer orch.Close()

	ctx := context.Background()
	const owner = "docproc"

	outcome, err := orch.Process(ctx, owner, content, fileType)
	if err != nil {
		return err
	}

	record := outcome.Record
	if outcome.TaskID != "" {
		record, err = waitForResult(ctx, tasks, owner, outcome.TaskID)
		if err != nil {
			return err
		}
	}

	return printRecord(record)
}

// waitForResult polls the task until it reaches a terminal state,
// reporting progress on stderr.
func waitForResult(ctx context.Context, tasks *task.Manager, owner, id string) (*core.StructuredData, error) {
	lastStage := ""
	for {
		got, err := tasks.Get(ctx, owner, id)
		if err != nil {
			return nil, err
		}

		if got.CurrentStage != lastStage {
			lastStage = got.CurrentStage
			fmt.Fprintf(os.Stderr, "%s (%.0f%%)\n", got.CurrentStage, got.ProgressPercentage)
		}

		switch got.Status {
		case core.TaskCompleted:
			if got.ErrorMessage != "" {
				fmt.Fprintf(os.Stderr, "warning: %s\n", got.ErrorMessage)
			}
			return got.Result, nil
		case core.TaskFailed:
			return nil, errors.New(got.ErrorMessage)
		case core.TaskCancelled:
			return nil, errors.New("task was cancelled")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func printRecord(record *core.StructuredData) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
