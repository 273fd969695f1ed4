package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"hackwatch/internal/app"
)

func main() {
	var (
		cfgPath string
		once    bool
	)
	flag.StringVar(&cfgPath, "config", "./hackwatch.yaml", "path to config yaml")
	flag.BoolVar(&once, "once", false, "run a single check and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if !once {
		// Best-effort; no-op outside systemd.
		_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
		defer func() { _, _ = daemon.SdNotify(false, daemon.SdNotifyStopping) }()
	}

	if err := a.Run(ctx, once); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
