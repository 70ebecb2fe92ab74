// Package main is the rehearse command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/rehearse/internal/app"
)

func main() {
	// SIGHUP covers a closed terminal; the session tears down like on quit.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	os.Exit(app.Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
