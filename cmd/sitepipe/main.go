package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/critical"
	"github.com/pustelto/sitepipe/builder/csssplit"
	"github.com/pustelto/sitepipe/builder/headless"
	"github.com/pustelto/sitepipe/builder/run"
	"github.com/pustelto/sitepipe/builder/scripts"
	"github.com/pustelto/sitepipe/builder/social"
	"github.com/pustelto/sitepipe/builder/styles"
	"github.com/pustelto/sitepipe/builder/video"
	"github.com/pustelto/sitepipe/internal/clean"
	"github.com/pustelto/sitepipe/internal/new"
	"github.com/pustelto/sitepipe/internal/scaffold"
	"github.com/pustelto/sitepipe/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "build":
		cfg, logger := setup(args)
		b := run.NewBuilder(cfg, logger)
		if cfg.Production {
			b.AddHook("social", func(ctx context.Context) (*batch.Report, error) {
				return runSocial(ctx, cfg, logger)
			})
		}
		report, err := b.Build(ctx)
		finish(logger, report, err)
	case "styles":
		cfg, logger := setup(args)
		res, err := styles.Compile(ctx, afero.NewOsFs(), styles.OptionsFromConfig(cfg, logger))
		if err == nil {
			fmt.Printf("🎨 Compiled %d stylesheet(s), %d bytes\n", len(res.Files), res.Bytes)
		}
		finish(logger, nil, err)
	case "scripts":
		cfg, logger := setup(args)
		res, err := scripts.Bundle(ctx, afero.NewOsFs(), scripts.OptionsFromConfig(cfg, logger))
		if err == nil {
			fmt.Printf("📦 Bundled %d script(s), copied %d\n", len(res.Bundles), len(res.Copied))
		}
		finish(logger, nil, err)
	case "split-css":
		cfg, logger := setup(args)
		fmt.Println("✂️  Splitting CSS...")
		report, err := csssplit.Split(ctx, afero.NewOsFs(), cfg.Split, logger)
		finish(logger, report, err)
	case "critical":
		cfg, logger := setup(args)
		fmt.Println("⚡ Inlining critical CSS...")
		report, err := runCritical(ctx, cfg, logger)
		finish(logger, report, err)
	case "social":
		cfg, logger := setup(args)
		fmt.Println("🖼️  Generating social images...")
		report, err := runSocial(ctx, cfg, logger)
		finish(logger, report, err)
	case "videos":
		force, rest := takeFlag(args, "-force", "--force")
		cfg, logger := setup(rest)
		t := video.NewTranscoder(afero.NewOsFs(), cfg.Video, nil, logger)
		t.Force = force
		report, err := t.Run(ctx)
		finish(logger, report, err)
	case "serve":
		cfg, logger := setup(args)
		config.SetDevMode(cfg, true)
		b := run.NewBuilder(cfg, logger)
		if err := server.New(cfg, b.DestFs, b, logger).Run(ctx); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	case "clean":
		withCache, rest := takeFlag(args, "-cache", "--cache")
		cfg, logger := setup(rest)
		finish(logger, nil, clean.Run(afero.NewOsFs(), cfg, withCache))
	case "new":
		if len(args) < 1 {
			fmt.Println("Usage: sitepipe new \"My New Post Title\"")
			os.Exit(1)
		}
		cfg, logger := setup(args[1:])
		_, err := new.Run(afero.NewOsFs(), cfg, args[0], time.Now())
		finish(logger, nil, err)
	case "init":
		cfg, logger := setup(args)
		finish(logger, nil, scaffold.Run(afero.NewOsFs(), cfg, time.Now().Format("2006-01-02")))
	case "cache":
		handleCacheCommand(args)
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func setup(args []string) (*config.Config, *slog.Logger) {
	cfg := config.Load(args)
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if cfg.ConfigFile != "" {
		logger.Debug("Loaded config", "file", cfg.ConfigFile)
	}
	return cfg, logger
}

// takeFlag reports whether any of names is in args and returns args
// without them.
func takeFlag(args []string, names ...string) (bool, []string) {
	found := false
	rest := make([]string, 0, len(args))
	for _, arg := range args {
		matched := false
		for _, name := range names {
			if arg == name {
				matched = true
			}
		}
		if matched {
			found = true
			continue
		}
		rest = append(rest, arg)
	}
	return found, rest
}

// finish logs the report and exits non-zero on an error or any failed item.
func finish(logger *slog.Logger, report *batch.Report, err error) {
	if report != nil {
		report.Log(logger)
	}
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	if report != nil && report.Failed() {
		os.Exit(1)
	}
}

func runCritical(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*batch.Report, error) {
	fs := afero.NewOsFs()
	c := openCacheFor(cfg, logger)
	if c != nil {
		defer func() { _ = c.Close() }()
	}
	orch := headless.New(logger)
	extractor := critical.NewChromeExtractor(orch, fs, cfg.Critical.Dir, logger)
	return critical.New(fs, cfg.Critical, extractor, c, logger).Run(ctx)
}

func runSocial(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*batch.Report, error) {
	c := openCacheFor(cfg, logger)
	if c != nil {
		defer func() { _ = c.Close() }()
	}

	var renderer social.Renderer = social.CanvasRenderer{}
	if cfg.Social.Renderer != "canvas" {
		orch := headless.New(logger)
		defer orch.Stop()
		renderer = social.NewChromeRenderer(orch)
	}
	return social.NewGenerator(afero.NewOsFs(), cfg.Social, renderer, c, logger).Run(ctx)
}

func printUsage() {
	fmt.Println("Usage: sitepipe <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  build          Build the site (-production also renders social images)")
	fmt.Println("  styles         Compile the stylesheet only")
	fmt.Println("  scripts        Bundle and copy scripts only")
	fmt.Println("  split-css      Split the shared stylesheet per page group")
	fmt.Println("  critical       Inline above-the-fold CSS into built pages")
	fmt.Println("  social         Render social share images from the manifest")
	fmt.Println("  videos         Transcode raw videos (-force re-encodes everything)")
	fmt.Println("  serve          Build, serve and rebuild on change")
	fmt.Println("  clean          Remove the output dir (-cache also removes the cache)")
	fmt.Println("  new <title>    Create a new blog post")
	fmt.Println("  init           Create a starter site in the current directory")
	fmt.Println("  cache          Inspect or clear the artifact cache")
	fmt.Println("  help           Show this help message")
	fmt.Println("\nCommon flags:")
	fmt.Println("  -v             Debug logging")
	fmt.Println("  -input DIR     Source directory")
	fmt.Println("  -output DIR    Output directory")
	fmt.Println("  -renderer NAME Social image renderer: chrome or canvas")
	fmt.Println("  -concurrency N Parallelism of critical, social and video steps")
	fmt.Println("  -fail-fast     Stop a batch step at its first failure")
}
