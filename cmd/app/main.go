package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/marctoxml/internal"
	"github.com/starford/marctoxml/internal/authdb"
	"github.com/starford/marctoxml/internal/marcxml"
	pkgconfig "github.com/starford/marctoxml/pkg/config"
)

// errReported marks an error whose message and usage were already printed.
var errReported = errors.New("reported")

func usageError(cmd *cli.Command, msg string) error {
	fmt.Fprintf(cmd.Root().ErrWriter, "ERROR: %s\n", msg)
	if cmd == cmd.Root() {
		_ = cli.ShowAppHelp(cmd)
	} else {
		_ = cli.ShowSubcommandHelp(cmd)
	}
	return errReported
}

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("logFile") {
		cfg.App.LogFile = cmd.String("logFile")
	}
	if cmd.IsSet("auth-db-property-file") {
		cfg.AuthDB.PropertyFile = cmd.String("auth-db-property-file")
	}
	if cmd.IsSet("auth-db-driver") {
		cfg.AuthDB.Driver = cmd.String("auth-db-driver")
	}
	return cfg, nil
}

func convert(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("inputFile") {
		cfg.Conversion.InputFile = strings.TrimSpace(cmd.String("inputFile"))
	}
	if cmd.IsSet("outputPath") {
		cfg.Conversion.OutputPath = strings.TrimSpace(cmd.String("outputPath"))
	}
	if cmd.Bool("replace") {
		cfg.Conversion.Replace = true
	}

	in := cfg.Conversion.InputFile
	if in == "" {
		return usageError(cmd, "No MARC input file specified.")
	}
	if info, err := os.Stat(in); err != nil || !info.Mode().IsRegular() {
		return usageError(cmd, "MARC input file is not a file.")
	}
	out := cfg.Conversion.ResolvedOutputPath()
	if out == "" {
		return usageError(cmd, "No output path specified; use --outputPath or set "+internal.OutputPathEnv+".")
	}
	if info, err := os.Stat(out); err != nil || !info.IsDir() {
		return usageError(cmd, "Output path is not a directory.")
	}
	if _, err := os.Stat(cfg.AuthDB.PropertyFile); err != nil {
		return usageError(cmd, "Authority DB property file is not a file: "+cfg.AuthDB.PropertyFile)
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func stream(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.AuthDB.PropertyFile); err != nil {
		return usageError(cmd, "Authority DB property file is not a file: "+cfg.AuthDB.PropertyFile)
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithStdin(cmd.Root().Reader),
		internal.WithStdout(cmd.Root().Writer),
	}
	if err := internal.Stream(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func validate(_ context.Context, cmd *cli.Command) error {
	path := strings.TrimSpace(cmd.String("inputFile"))
	if path == "" {
		return usageError(cmd, "No MARC-XML input file specified.")
	}
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		return usageError(cmd, "MARC-XML input file is not a file.")
	}

	w := cmd.Root().Writer
	if err := marcxml.ValidateFile(path); err != nil {
		var verr *marcxml.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		fmt.Fprintln(cmd.Root().ErrWriter, verr.Error())
		fmt.Fprintf(w, "INVALID: %s\n", path)
		return nil
	}
	fmt.Fprintf(w, "VALID:   %s\n", path)
	return nil
}

func authDBFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "auth-db-property-file",
			Aliases: []string{"p"},
			Usage:   "Authority DB connection property file",
			Value:   "config/server.conf",
		},
		&cli.StringFlag{
			Name:  "auth-db-driver",
			Usage: "Authority DB driver: " + strings.Join(authdb.Drivers(), ", "),
			Value: authdb.DriverOracle,
		},
		&cli.StringFlag{
			Name:    "logFile",
			Aliases: []string{"l"},
			Usage:   "Log file",
			Value:   "log/marctoxml.log",
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to optional config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
	}
}

func newCommand(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "marctoxml",
		Usage:     "Convert MARC21 records to MARC-XML, resolving authority keys to URIs",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Action:    convert,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "inputFile",
				Aliases: []string{"i"},
				Usage:   "MARC input file",
			},
			&cli.StringFlag{
				Name:    "outputPath",
				Aliases: []string{"o"},
				Usage:   "MARC-XML output directory (default: $" + internal.OutputPathEnv + ")",
				Sources: cli.EnvVars(internal.OutputPathEnv),
			},
			&cli.BoolFlag{
				Name:    "replace",
				Aliases: []string{"r"},
				Usage:   "Replace existing MARC-XML files",
			},
		}, authDBFlags()...),
		Commands: []*cli.Command{
			{
				Name:   "stream",
				Usage:  "Convert MARC records from stdin into one MARC-XML collection on stdout",
				Action: stream,
				Flags:  authDBFlags(),
			},
			{
				Name:   "validate",
				Usage:  "Validate a MARC-XML file against the MARC21 slim schema",
				Action: validate,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "inputFile",
						Aliases: []string{"i"},
						Usage:   "MARC-XML input file",
					},
				},
			},
		},
	}
}

func main() {
	cmd := newCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		}
		os.Exit(1)
	}
}
