// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/marctoxml/internal/apperr"
	"github.com/starford/marctoxml/internal/authdb"
	"github.com/starford/marctoxml/internal/converter"
	"github.com/starford/marctoxml/internal/logging"
	"github.com/starford/marctoxml/internal/marc"
	"github.com/starford/marctoxml/internal/resolver"
	"github.com/starford/marctoxml/internal/storage"
)

// Run converts the configured input file into one MARC-XML file per record
// in the output directory.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("%w: config is required", apperr.ErrConfig)
	}
	cfg := app.config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrConfig, err)
	}
	if err := cfg.Conversion.Validate(); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrConfig, err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	outputPath := cfg.Conversion.ResolvedOutputPath()
	logger.Info("Configuration loaded",
		slog.String("input_file", cfg.Conversion.InputFile),
		slog.String("output_path", outputPath),
		slog.Bool("replace", cfg.Conversion.Replace),
		slog.String("auth_db_driver", cfg.AuthDB.Driver),
		slog.String("log_level", cfg.App.LogLevel.String()))

	session, res, err := newPipeline(cfg, logger.Logger)
	if err != nil {
		return err
	}

	in, err := os.Open(cfg.Conversion.InputFile)
	if err != nil {
		return fmt.Errorf("%w: open input: %w", apperr.ErrInput, err)
	}
	defer in.Close()

	out, err := storage.NewFS(outputPath)
	if err != nil {
		return err
	}

	driver := converter.New(res, session,
		converter.WithOutput(out),
		converter.WithReplace(cfg.Conversion.Replace),
		converter.WithLogger(logger.Logger))

	return runWithSignals(ctx, logger.Logger, func(ctx context.Context) error {
		_, err := driver.ConvertAll(ctx, marc.NewReader(in))
		return err
	})
}

// Stream converts MARC records read from stdin into a single MARC-XML
// collection written to stdout.
func Stream(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("%w: config is required", apperr.ErrConfig)
	}
	cfg := app.config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrConfig, err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	session, res, err := newPipeline(cfg, logger.Logger)
	if err != nil {
		return err
	}
	driver := converter.New(res, session, converter.WithLogger(logger.Logger))

	return runWithSignals(ctx, logger.Logger, func(ctx context.Context) error {
		w := marc.NewXMLWriter(app.stdout)
		_, err := driver.Stream(ctx, marc.NewReader(app.stdin), w)
		if err != nil && apperr.Fatal(err) {
			return err
		}
		if cerr := w.Close(); cerr != nil {
			return fmt.Errorf("%w: close collection: %w", apperr.ErrOutput, cerr)
		}
		return err
	})
}

func newLogger(cfg *Config) (*logging.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		File:   cfg.App.LogFile,
	}, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrConfig, err)
	}
	return logger, nil
}

// newPipeline loads the connection properties and builds the session and
// resolver shared by both run modes. No connection is made yet.
func newPipeline(cfg *Config, logger *slog.Logger) (*authdb.Session, *resolver.Resolver, error) {
	props, err := authdb.LoadProperties(cfg.AuthDB.PropertyFile)
	if err != nil {
		return nil, nil, err
	}
	target := authdb.Target{Driver: cfg.AuthDB.Driver, Props: *props}
	if err := target.Validate(); err != nil {
		return nil, nil, err
	}

	session := authdb.NewSession(target, logger)
	store, err := authdb.NewStore(session)
	if err != nil {
		return nil, nil, err
	}
	return session, resolver.New(store, logger), nil
}

// runWithSignals runs fn with a context cancelled on SIGINT or SIGTERM.
func runWithSignals(ctx context.Context, logger *slog.Logger, fn func(context.Context) error) error {
	g, gCtx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		return fn(runCtx)
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-runCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Conversion interrupted")
		} else {
			logger.Error("Application error", slog.String("error", err.Error()))
		}
		return err
	}
	return nil
}
