package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/choropleth/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	cancel()
	os.Exit(code)
}

// run executes the command line and returns the process exit code: 130
// after an interrupt, 1 on any other failure.
func run(ctx context.Context) int {
	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.SilenceErrors = true

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case ctx.Err() != nil:
		c.Logger.Warn("interrupted")
		return 130
	}
	c.Logger.Error(err.Error())
	return 1
}
