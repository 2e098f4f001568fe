// triage turns customer emails into structured support tickets.
//
// Usage:
//
//	triage [file] [--json] [--model=<name>] [--demo]
//	triage batch <file> [--format=json|csv|yaml] [--output=<path>] [--summary] [--concurrency=<n>]
//	triage mcp
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
