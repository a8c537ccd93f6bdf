// Package main is the entry point for the hanaihangctl CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Earthondev/hanaihang/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
