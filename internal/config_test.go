package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/marctoxml/pkg/config"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if cfg.AuthDB.Driver != "oracle" {
		t.Errorf("default driver = %q, want oracle", cfg.AuthDB.Driver)
	}
}

func TestApplicationConfig_EmptyFormatDefaultsJSON(t *testing.T) {
	cfg := ApplicationConfig{LogFile: "x.log"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty format should default to json: %v", err)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("format = %q, want %q", cfg.LogFormat, LogFormatJSON)
	}
}

func TestApplicationConfig_InvalidFormat(t *testing.T) {
	cfg := ApplicationConfig{LogFile: "x.log", LogFormat: "xml"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid format should fail validation")
	}
}

func TestAuthDBConfig_InvalidDriver(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.AuthDB.Driver = "mysql"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail validation")
	}
}

func TestConversionConfig_RequiresInput(t *testing.T) {
	cfg := ConversionConfig{OutputPath: t.TempDir()}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("missing input should fail")
	}
	if !strings.Contains(err.Error(), "input file is required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConversionConfig_OutputFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(OutputPathEnv, dir)

	cfg := ConversionConfig{InputFile: "in.mrc"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("env output path should satisfy validation: %v", err)
	}
	if got := cfg.ResolvedOutputPath(); got != dir {
		t.Errorf("output path = %q, want %q", got, dir)
	}

	cfg.OutputPath = "explicit"
	if got := cfg.ResolvedOutputPath(); got != "explicit" {
		t.Errorf("flag should win over env, got %q", got)
	}
}

func TestConversionConfig_MissingOutput(t *testing.T) {
	t.Setenv(OutputPathEnv, "")
	cfg := ConversionConfig{InputFile: "in.mrc"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), OutputPathEnv) {
		t.Fatalf("expected output path error naming %s, got %v", OutputPathEnv, err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("MARC_DB_PROPS", "/etc/marctoxml/server.conf")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  log_level: debug
  log_format: text
  log_file: /tmp/marctoxml.log
auth_db:
  driver: sqlite3
  property_file: ${MARC_DB_PROPS}
conversion:
  replace: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthDB.PropertyFile != "/etc/marctoxml/server.conf" {
		t.Errorf("property file = %q, env not expanded", cfg.AuthDB.PropertyFile)
	}
	if cfg.AuthDB.Driver != "sqlite3" || !cfg.Conversion.Replace || cfg.App.LogFormat != LogFormatText {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %v, want DEBUG", cfg.App.LogLevel)
	}
}
