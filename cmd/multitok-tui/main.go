package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/handiism/multitok/internal/config"
	"github.com/handiism/multitok/internal/tui"
	"github.com/spf13/afero"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configFlag  = flag.String("config", "", "Path to config file (.json or .yaml)")
		envFlag     = flag.String("env", ".env", "Path to a .env file with MULTITOK_* variables")
		logFileFlag = flag.String("log-file", "", "Write diagnostic logs to this file")
	)
	flag.Parse()

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

	// The alternate screen owns the terminal, so logs go to a file or nowhere
	logger := slog.New(slog.DiscardHandler)
	if *logFileFlag != "" {
		f, err := os.OpenFile(*logFileFlag, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			return 1
		}
		defer f.Close()

		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(settings.LogLevel)); err != nil {
			lvl = slog.LevelInfo
		}
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl})).
			With(slog.String("run_id", uuid.NewString()))
	}

	if err := tui.Run(settings, afero.NewOsFs(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
