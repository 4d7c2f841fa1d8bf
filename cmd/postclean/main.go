// Command postclean cleans a CSV of social-media posts and writes the
// augmented table to a new CSV.
//
//	postclean                      clean with the configured paths
//	postclean clean -i in -o out   clean with explicit paths
//	postclean serve                serve POST /api/clean over HTTP
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
