package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
)

type Globals struct {
	// Debug option
	Debug bool `name:"debug" help:"Enable debug logging"`

	// Private fields
	ctx    context.Context
	cancel context.CancelFunc
}

type CLI struct {
	Globals
	Run RunCmd `cmd:"" default:"withargs" help:"Run a cancellation soak against one queue"`
}

func main() {
	cli := new(CLI)
	ctx := kong.Parse(cli,
		kong.Name("dqsoak"),
		kong.Description("Soak test for the delay queue: concurrent producers, consumers that abandon pops, and an exactly-once check"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	// Create the context and cancel function
	cli.Globals.ctx, cli.Globals.cancel = signal.NotifyContext(context.Background(), os.Interrupt)
	defer cli.Globals.cancel()

	// Call the Run() method of the selected parsed command.
	if err := ctx.Run(&cli.Globals); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (g *Globals) Logger() *slog.Logger {
	level := slog.LevelInfo
	if g.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
