package main

import (
	"context"
	"fmt"
	"os"

	"aurora-kvm-top/internal/config"
	"aurora-kvm-top/internal/logging"
	"aurora-kvm-top/internal/tui/app"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	var extraSink logging.Sink
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		extraSink = logging.NewWriterSink(f, cfg.LogJSON)
	}

	controller := app.New(cfg, extraSink)
	if err := controller.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "aurora-kvm-top: %v\n", err)
		os.Exit(1)
	}
}
