package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/usestring/flowschema/internal/config"
	"github.com/usestring/flowschema/internal/logging"
	"github.com/usestring/flowschema/internal/output"
	"github.com/usestring/flowschema/internal/pipeline"
)

// ErrMissingArgument is returned when no capture path is given.
var ErrMissingArgument = errors.New("missing capture path argument")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Configuration is loaded from environment variables
	// (see internal/config for all options).
	cfg := config.Load()

	logCleanup, err := logging.Setup(logging.FromConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "flowschema: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, os.Args[1:], cfg)
	logCleanup()
	if err != nil {
		slog.Error("inference failed", "error", err)
		os.Exit(1)
	}
}

// run infers the structure of the capture named by args and writes it next
// to the capture. All arguments form one path, so unquoted paths containing
// spaces still work.
func run(ctx context.Context, args []string, cfg *config.Config) error {
	path := strings.Join(args, " ")
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: usage: flowschema <capture file>", ErrMissingArgument)
	}

	start := time.Now()

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	res, err := pipeline.New(opts).RunFile(ctx, path)
	if err != nil {
		return err
	}

	written, err := output.FromConfig(cfg).Write(path, res.Structure)
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	slog.Info("done",
		slog.String("flows", p.Sprintf("%d", res.Flows)),
		slog.String("endpoints", p.Sprintf("%d", res.Endpoints)),
		slog.Int("services", res.Services),
		slog.Any("written", written),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
