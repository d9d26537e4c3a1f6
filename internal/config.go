package internal

import (
	"fmt"
	"log/slog"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/marctoxml/internal/authdb"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// OutputPathEnv is consulted when no output path is configured.
const OutputPathEnv = "LD4P_MARCXML"

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Conversion ConversionConfig  `yaml:"conversion"`
	AuthDB     AuthDBConfig      `yaml:"auth_db"`
}

// Validate validates the sections every run mode needs. File conversion
// additionally calls Conversion.Validate.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.AuthDB.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	LogFile   string     `yaml:"log_file"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
		validation.Field(&c.LogFile, validation.Required),
	)
}

// ConversionConfig holds file conversion settings.
type ConversionConfig struct {
	InputFile  string `yaml:"input_file"`
	OutputPath string `yaml:"output_path"`
	Replace    bool   `yaml:"replace"`
}

// ResolvedOutputPath returns OutputPath, falling back to $LD4P_MARCXML.
func (c *ConversionConfig) ResolvedOutputPath() string {
	if c.OutputPath != "" {
		return c.OutputPath
	}
	return os.Getenv(OutputPathEnv)
}

// Validate validates the conversion configuration.
func (c *ConversionConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.InputFile, validation.Required.Error("input file is required")),
	); err != nil {
		return err
	}
	if c.ResolvedOutputPath() == "" {
		return fmt.Errorf("output path is required: set --outputPath or %s", OutputPathEnv)
	}
	return nil
}

// AuthDBConfig holds the authority database connection settings.
type AuthDBConfig struct {
	Driver       string `yaml:"driver"`
	PropertyFile string `yaml:"property_file"`
}

// Validate validates the authority database configuration.
func (c *AuthDBConfig) Validate() error {
	drivers := authdb.Drivers()
	allowed := make([]any, len(drivers))
	for i, d := range drivers {
		allowed[i] = d
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(allowed...)),
		validation.Field(&c.PropertyFile, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			LogFile:   "log/marctoxml.log",
		},
		AuthDB: AuthDBConfig{
			Driver:       authdb.DriverOracle,
			PropertyFile: "config/server.conf",
		},
	}
}
