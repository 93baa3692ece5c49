// Package config centralizes loader configuration. All tunables live
// outside the code: CLI flags take precedence, environment variables
// (ABPLOAD_*) seed the flag defaults, and hard defaults cover the rest.
//
// FromEnv is the testable entry point: callers supply a getenv func, often
// backed by a map, so tests never touch the process environment.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/TimGJ/AddressBasePremium/internal/db"
	"github.com/TimGJ/AddressBasePremium/internal/ddl"
)

// Error marks a configuration problem. The process exits before any
// ingestion when one surfaces.
type Error string

func (e Error) Error() string { return string(e) }

func errorf(format string, args ...any) Error {
	return Error(fmt.Sprintf(format, args...))
}

// Config holds all process configuration. Fields are plain values, safe to
// copy once construction is done.
type Config struct {
	// Target database. DSN, when set, wins over the discrete parts.
	Connector string // postgres, sqlserver, mysql or sqlite
	DSN       string
	Host      string
	Port      string // empty selects the connector's default port
	Username  string
	Password  string
	DBName    string // for sqlite this is the database file path

	// Ingestion tunables.
	Overwrite          bool
	BatchSize          int
	Workers            int
	MaxStorageFailures int
	SkippedDir         string // empty disables skipped-row logs
	FilesFrom          string // optional newline-separated list of inputs
	Unlogged           bool   // Postgres only

	Verbose bool
}

// FromEnv builds a Config from environment fallbacks and hard defaults.
// CLI flag binding layers on top of the returned values.
func FromEnv(getenv func(string) string) Config {
	env := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnv := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnv := func(k string, d bool) bool {
		if v := strings.ToLower(getenv(k)); v != "" {
			switch v {
			case "1", "true", "yes", "on":
				return true
			case "0", "false", "no", "off":
				return false
			}
		}
		return d
	}

	return Config{
		Connector:          env("ABPLOAD_CONNECTOR", "postgres"),
		DSN:                getenv("ABPLOAD_DSN"),
		Host:               env("ABPLOAD_DB_HOST", "localhost"),
		Port:               getenv("ABPLOAD_DB_PORT"),
		Username:           getenv("ABPLOAD_DB_USER"),
		Password:           getenv("ABPLOAD_DB_PASSWORD"),
		DBName:             env("ABPLOAD_DB_NAME", "addressbasepremium"),
		BatchSize:          intEnv("ABPLOAD_BATCH_SIZE", 10000),
		Workers:            intEnv("ABPLOAD_WORKERS", 4),
		MaxStorageFailures: intEnv("ABPLOAD_MAX_STORAGE_FAILURES", 3),
		SkippedDir:         env("ABPLOAD_SKIPPED_DIR", "skipped"),
		Unlogged:           boolEnv("ABPLOAD_UNLOGGED", false),
	}
}

// Dialect resolves the connector name.
func (c *Config) Dialect() (ddl.Dialect, error) {
	d, err := db.ParseConnector(c.Connector)
	if err != nil {
		return 0, errorf("%v", err)
	}
	return d, nil
}

// Validate checks the configuration before anything connects or loads.
func (c *Config) Validate() error {
	d, err := c.Dialect()
	if err != nil {
		return err
	}
	if c.DSN == "" {
		if c.DBName == "" {
			return errorf("database name must not be empty")
		}
		if d != ddl.SQLite && c.Host == "" {
			return errorf("database host must not be empty")
		}
	}
	if c.BatchSize < 1 {
		return errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Workers < 1 {
		return errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxStorageFailures < 1 {
		return errorf("max storage failures must be positive, got %d", c.MaxStorageFailures)
	}
	if c.Unlogged && d != ddl.Postgres {
		return errorf("unlogged tables are a Postgres feature")
	}
	return nil
}

// ResolveDSN assembles the connection string for the configured engine,
// unless an explicit DSN overrides it. Credentials are URL-escaped where
// the scheme requires it.
func (c *Config) ResolveDSN() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	d, err := c.Dialect()
	if err != nil {
		return "", err
	}
	switch d {
	case ddl.Postgres:
		u := url.URL{
			Scheme: "postgres",
			Host:   hostPort(c.Host, c.Port, "5432"),
			Path:   "/" + c.DBName,
		}
		if c.Username != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		}
		return u.String(), nil

	case ddl.SQLServer:
		u := url.URL{
			Scheme:   "sqlserver",
			Host:     hostPort(c.Host, c.Port, "1433"),
			RawQuery: url.Values{"database": []string{c.DBName}}.Encode(),
		}
		if c.Username != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		}
		return u.String(), nil

	case ddl.MySQL:
		mc := mysql.NewConfig()
		mc.User = c.Username
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = hostPort(c.Host, c.Port, "3306")
		mc.DBName = c.DBName
		mc.ParseTime = true
		return mc.FormatDSN(), nil

	case ddl.SQLite:
		return c.DBName, nil
	}
	return "", errorf("no DSN rule for connector %q", c.Connector)
}

func hostPort(host, port, def string) string {
	if port == "" {
		port = def
	}
	return host + ":" + port
}
