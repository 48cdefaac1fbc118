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
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/transferindex/internal/app"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, runs the index and maps the outcome to an exit code:
// 0 when every institution succeeded, 1 when any institution or output
// failed, 2 on configuration errors. Institutions below their success
// threshold only log a warning.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("transferindex", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("version", false, "Print the version and exit")

	cfg, err := app.LoadConfig(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		log.Error().Err(err).Msg("invalid configuration")
		return exitConfig
	}
	if *showVersion {
		fmt.Fprintf(stderr, "transferindex %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return exitOK
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if err := app.ValidateConfig(&cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return exitConfig
	}
	log.Debug().Str("version", app.BuildVersion).Strs("inst", cfg.Institutions).Msg("starting")

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		log.Error().Err(err).Msg("init failed")
		return exitFailed
	}
	defer a.Close()

	rep, err := a.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("run finished with errors")
		return exitFailed
	}
	if len(rep.Summary.Suspect) > 0 {
		log.Warn().Strs("suspect", rep.Summary.Suspect).Msg("some institutions parsed below their threshold")
	}
	return exitOK
}
