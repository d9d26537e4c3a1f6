package authdb

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/magiconair/properties"
	go_ora "github.com/sijms/go-ora/v2"

	"github.com/starford/marctoxml/internal/apperr"
)

// Property keys read from the connection property file.
const (
	KeyServer      = "SERVER"
	KeyServiceName = "SERVICE_NAME"
	KeyUser        = "USER"
	KeyPass        = "PASS"
	KeyPort        = "PORT"
)

// Properties holds the connection settings for the authority database.
type Properties struct {
	Server      string
	ServiceName string
	User        string
	Pass        string
	Port        int
}

// LoadProperties reads a Java-style property file.
func LoadProperties(path string) (*Properties, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("%w: authdb: load property file %s: %w", apperr.ErrConfig, path, err)
	}
	return fromProperties(p)
}

// ParseProperties parses property file content held in memory.
func ParseProperties(content string) (*Properties, error) {
	p, err := properties.LoadString(content)
	if err != nil {
		return nil, fmt.Errorf("%w: authdb: parse properties: %w", apperr.ErrConfig, err)
	}
	return fromProperties(p)
}

func fromProperties(p *properties.Properties) (*Properties, error) {
	get := func(key string) string {
		return strings.TrimSpace(p.GetString(key, ""))
	}
	var port int
	if raw := get(KeyPort); raw != "" {
		var err error
		if port, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("%w: authdb: %s %q is not a number", apperr.ErrConfig, KeyPort, raw)
		}
	}
	return &Properties{
		Server:      get(KeyServer),
		ServiceName: get(KeyServiceName),
		User:        get(KeyUser),
		Pass:        get(KeyPass),
		Port:        port,
	}, nil
}

// Validate checks the properties required by the given driver. A SQLite
// target only needs SERVER, which names the database file.
func (p *Properties) Validate(driver string) error {
	network := driver != DriverSQLite
	return validation.ValidateStruct(p,
		validation.Field(&p.Server, validation.Required),
		validation.Field(&p.ServiceName, validation.When(network, validation.Required)),
		validation.Field(&p.User, validation.When(network, validation.Required)),
		validation.Field(&p.Port, validation.Min(0), validation.Max(65535)),
	)
}

// Target is a driver plus the properties needed to reach the database.
type Target struct {
	Driver string
	Props  Properties
}

// Validate checks the driver name and its properties.
func (t Target) Validate() error {
	if _, ok := dialects[t.Driver]; !ok {
		return fmt.Errorf("%w: authdb: unknown driver %q", apperr.ErrConfig, t.Driver)
	}
	if err := t.Props.Validate(t.Driver); err != nil {
		return fmt.Errorf("%w: authdb: %w", apperr.ErrConfig, err)
	}
	return nil
}

// DSN builds the data source name for the target's driver.
func (t Target) DSN() (string, error) {
	p := t.Props
	switch t.Driver {
	case DriverOracle:
		return go_ora.BuildUrl(p.Server, t.port(), p.ServiceName, p.User, p.Pass, nil), nil
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(p.User, p.Pass),
			Host:   net.JoinHostPort(p.Server, strconv.Itoa(t.port())),
			Path:   "/" + p.ServiceName,
		}
		return u.String(), nil
	case DriverSQLite:
		u := url.URL{
			Scheme:   "file",
			Opaque:   (&url.URL{Path: p.Server}).EscapedPath(),
			RawQuery: url.Values{"mode": {"ro"}, "_busy_timeout": {"5000"}}.Encode(),
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("%w: authdb: unknown driver %q", apperr.ErrConfig, t.Driver)
	}
}

// String describes the target without credentials, for logs.
func (t Target) String() string {
	if t.Driver == DriverSQLite {
		return t.Driver + ":" + t.Props.Server
	}
	return fmt.Sprintf("%s://%s:%d/%s", t.Driver, t.Props.Server, t.port(), t.Props.ServiceName)
}

func (t Target) port() int {
	if t.Props.Port > 0 {
		return t.Props.Port
	}
	if d, ok := dialects[t.Driver]; ok {
		return d.defaultPort
	}
	return 0
}
