package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/x/term"

	"github.com/Makepad-fr/donezo/internal/app"
	"github.com/Makepad-fr/donezo/internal/cli"
	"github.com/Makepad-fr/donezo/internal/config"
	"github.com/Makepad-fr/donezo/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	// Root flags (apply to every subcommand)
	fs := flag.NewFlagSet("donezo", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { cli.PrintHelp(os.Stderr) }
	cfg, err := config.Load(fs, argv)
	if errors.Is(err, flag.ErrHelp) {
		return cli.ExitOK
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "donezo:", err)
		return cli.ExitUsage
	}

	// Hand the remaining args to the CLI runner.
	args := fs.Args()
	interactive := term.IsTerminal(os.Stdout.Fd())

	logOpts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	logger := logging.New(os.Stderr, logOpts)
	var logFile io.Closer
	if cli.WantsTUI(args, interactive) {
		// the alt screen owns the terminal
		l, c, err := logging.OpenFile(cfg.LogFile(), logOpts)
		if err != nil {
			logger = logging.Discard()
		} else {
			logger, logFile = l, c
		}
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.Debug("config loaded", "backend", cfg.Backend, "files", cfg.Files)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger, app.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "donezo:", err)
		return cli.ExitError
	}
	defer a.Close()

	code := cli.Run(ctx, a, args, cli.Env{
		Out:         os.Stdout,
		Err:         os.Stderr,
		In:          os.Stdin,
		Interactive: interactive,
	})
	if code != cli.ExitOK {
		fmt.Fprintln(os.Stderr)
	}
	return code
}
