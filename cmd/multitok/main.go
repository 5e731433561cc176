package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/handiism/multitok/internal/config"
	"github.com/handiism/multitok/internal/download"
	"github.com/handiism/multitok/internal/provider"
	"github.com/spf13/afero"
)

func main() {
	os.Exit(run())
}

func run() int {
	defaults := config.DefaultSettings()

	// Command line flags
	var (
		linksFlag        = flag.String("links", defaults.LinksPath, "Path to a text file with one link per line")
		watermarkFlag    = flag.Bool("watermark", false, "Download videos with the watermark")
		noWatermarkFlag  = flag.Bool("no-watermark", false, "Download videos without the watermark (default)")
		workersFlag      = flag.Int("workers", defaults.Workers, "Number of concurrent downloads")
		apiFlag          = flag.String("api-version", defaults.Provider, "Mirror to use: "+strings.Join(provider.Names(), ", "))
		metadataFlag     = flag.Bool("save-metadata", false, "Write a JSON metadata file next to each video")
		skipFlag         = flag.Bool("skip-existing", false, "Skip files that already exist")
		noFoldersFlag    = flag.Bool("no-folders", false, "Save all files directly in the output directory")
		outputFlag       = flag.String("output-dir", defaults.OutputDir, "Output directory")
		configFlag       = flag.String("config", "", "Path to config file (.json or .yaml)")
		envFlag          = flag.String("env", ".env", "Path to a .env file with MULTITOK_* variables")
		cacheFlag        = flag.String("cache", defaults.CachePath, "Dedup cache: SQLite file, redis:// URL or :memory:")
		errorsFlag       = flag.String("errors", defaults.ErrorLogPath, "File failed links are appended to")
		convertFlag      = flag.Bool("convert-photos", false, "Re-encode photos as JPEG")
		photoMaxSizeFlag = flag.Int("photo-max-size", 0, "Downsize photos larger than this many pixels (0 keeps size)")
		logLevelFlag     = flag.String("log-level", defaults.LogLevel, "Diagnostic log level: debug, info, warn, error")
		verboseFlag      = flag.Bool("verbose", false, "Show verbose output")
		dryRunFlag       = flag.Bool("dry-run", false, "List links that would be downloaded without downloading")
	)

	flag.Parse()

	if *watermarkFlag && *noWatermarkFlag {
		fmt.Fprintln(os.Stderr, "Error: --watermark and --no-watermark cannot be used together")
		return 2
	}

	// Load config
	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			return 1
		}
	}

	env, err := config.ReadEnv(*envFlag)
	if err == nil {
		err = settings.ApplyEnv(env)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading environment: %v\n", err)
		return 1
	}

	// Apply flags that were given explicitly
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "links":
			settings.LinksPath = *linksFlag
		case "watermark":
			settings.Watermark = *watermarkFlag
		case "no-watermark":
			settings.Watermark = !*noWatermarkFlag
		case "workers":
			settings.Workers = *workersFlag
		case "api-version":
			settings.Provider = *apiFlag
		case "save-metadata":
			settings.SaveMetadata = *metadataFlag
		case "skip-existing":
			settings.SkipExisting = *skipFlag
		case "no-folders":
			settings.NoFolders = *noFoldersFlag
		case "output-dir":
			settings.OutputDir = *outputFlag
		case "cache":
			settings.CachePath = *cacheFlag
		case "errors":
			settings.ErrorLogPath = *errorsFlag
		case "convert-photos":
			settings.ConvertPhotosToJPEG = *convertFlag
		case "photo-max-size":
			settings.PhotoMaxSize = *photoMaxSizeFlag
		case "log-level":
			settings.LogLevel = *logLevelFlag
		}
	})

	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	logger := newLogger(settings.LogLevel)

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, stopping...")
		cancel()
	}()

	fs := afero.NewOsFs()
	links, err := download.ReadLinks(fs, settings.LinksPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading links: %v\n", err)
		return 1
	}

	session, err := download.NewSession(ctx, settings, fs, logger, func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !*verboseFlag {
			return
		}

		prefix := ""
		switch event.Level {
		case download.LevelError:
			prefix = "❌ "
		case download.LevelWarning:
			prefix = "⚠️  "
		case download.LevelSuccess:
			prefix = "✅ "
		case download.LevelInfo:
			prefix = "ℹ️  "
		default:
			prefix = "   "
		}

		fmt.Println(prefix + event.Message)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		return 1
	}
	defer session.Close()

	fmt.Println("🎬 multitok")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Provider %s, %d workers, %d links\n\n", settings.Provider, settings.Workers, len(links))

	if *dryRunFlag {
		pending := 0
		for _, link := range download.Unique(links) {
			done, err := session.Cache.Contains(ctx, link)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading cache: %v\n", err)
				return 1
			}
			if !done {
				pending++
				fmt.Println("   " + link.String())
			}
		}
		fmt.Printf("\n[Dry run - %d links would be downloaded]\n", pending)
		return 0
	}

	summary, err := session.Run(ctx, links)

	received, _, filesReceived, _ := session.GetProgress()
	fmt.Println()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("✨ Done: %d downloaded, %d skipped, %d failed (%d files, %.2f MB)\n",
		summary.Succeeded, summary.Skipped, summary.Failed, filesReceived, float64(received)/1024/1024)
	if summary.Failed > 0 {
		fmt.Printf("   Failed links were appended to %s\n", session.ErrorLog.Path())
	}

	if err != nil {
		fmt.Printf("   Cancelled, %d links not started.\n", summary.NotStarted)
		return 130
	}
	return 0
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With(slog.String("run_id", uuid.NewString()))
}
