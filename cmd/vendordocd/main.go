package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mynkchaudhry/VendorDocComparsion/aggregate"
	"github.com/mynkchaudhry/VendorDocComparsion/chunking"
	"github.com/mynkchaudhry/VendorDocComparsion/config"
	"github.com/mynkchaudhry/VendorDocComparsion/extract"
	"github.com/mynkchaudhry/VendorDocComparsion/inference"
	"github.com/mynkchaudhry/VendorDocComparsion/inference/openai"
	"github.com/mynkchaudhry/VendorDocComparsion/memgov"
	"github.com/mynkchaudhry/VendorDocComparsion/pipeline"
	"github.com/mynkchaudhry/VendorDocComparsion/server"
	"github.com/mynkchaudhry/VendorDocComparsion/task"
	taskbadger "github.com/mynkchaudhry/VendorDocComparsion/task/badger"
)

func main() {
	app := &cli.App{
		Name:  "vendordocd",
		Usage: "Vendor document processing service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(_ *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The durable store failing to open degrades task tracking to the
	// in-process fallback instead of refusing to start; every task read
	// in that mode carries durable:false.
	var store task.Store
	if s, err := taskbadger.Open(cfg.Store.Path, cfg.Store.InMemory); err != nil {
		slog.Warn("durable task store unavailable, falling back to in-memory tracking",
			"path", cfg.Store.Path, "error", err)
		store = task.NewMemoryStore()
	} else {
		store = s
	}
	defer store.Close()

	tasks, err := task.NewManager(store,
		task.WithMaxUserTasks(cfg.Tasks.MaxUserTasks),
		task.WithRetention(time.Duration(cfg.Tasks.RetentionHours)*time.Hour))
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

	governor := memgov.New(memgov.WithNormalLimits(memgov.Limits{
		MaxChunkWords:       cfg.Processing.MaxChunkSize,
		MaxConcurrentChunks: cfg.Processing.MaxConcurrentChunks,
	}))

	orch, err := pipeline.NewOrchestrator(pipeline.Deps{
		Registry:  extract.NewRegistry(),
		Governor:  governor,
		Chunker:   chunking.NewEngine(cfg.Processing.ChunkOverlap),
		Inference: client,
		Merger:    aggregate.NewMerger(),
		Tasks:     tasks,
		Documents: pipeline.NewMemoryDocumentStore(),
	},
		pipeline.WithProcessingTimeout(cfg.Processing.ProcessingTimeout),
		pipeline.WithFailureRatio(cfg.Processing.FailureRatio),
		pipeline.WithFastPathThreshold(cfg.Processing.FastPathThreshold),
		pipeline.WithMaxRunningTasks(cfg.Tasks.MaxRunning))
	if err != nil {
		return err
	}
	defer orch.Close()

	srv := server.New(orch, tasks, server.WithMaxUploadSize(cfg.Server.MaxUploadSize))
	return srv.Run(cfg.Server.Addr)
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
