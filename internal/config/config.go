// Package config loads settings for the dashboard, the reference API and
// the ETL tool.
//
// Sources, lowest to highest precedence:
//   - built-in defaults
//   - a YAML file named by --config or INBOX_CONFIG (optional)
//   - INBOX_* environment variables, including any set from a .env file
//   - command-line flags
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

type Role int

const (
	RoleDashboard Role = iota
	RoleAPI
	RoleETL
)

type Config struct {
	Dashboard DashboardConfig `yaml:"dashboard"`
	API       APIConfig       `yaml:"api"`
	ETL       ETLConfig       `yaml:"etl"`
	Log       LogConfig       `yaml:"log"`
}

type DashboardConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	// BackendURL is the base of the inbox API (GET /metrics, GET /tickets,
	// PATCH /tickets/{id}).
	BackendURL string `yaml:"backend_url"`

	// RequestTimeout bounds each backend call. Zero leaves it to the transport.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ViewTTL is how long an untouched ticket page keeps its loaded copy.
	ViewTTL       time.Duration `yaml:"view_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`

	DataSourceLabel string `yaml:"data_source_label"`
}

type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	// Store is "memory" or "postgres".
	Store       string `yaml:"store"`
	DatabaseURL string `yaml:"database_url"`

	SeedFile    string `yaml:"seed_file"`
	MetricsFile string `yaml:"metrics_file"`

	// WebhookURL receives ticket_updated events; empty disables them.
	WebhookURL     string        `yaml:"webhook_url"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
}

type ETLConfig struct {
	Input         string `yaml:"input"`
	Output        string `yaml:"output"`
	DatasetSource string `yaml:"dataset_source"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

func Default() *Config {
	return &Config{
		Dashboard: DashboardConfig{
			ListenAddr:      ":3000",
			BackendURL:      "http://127.0.0.1:8000",
			ViewTTL:         30 * time.Minute,
			SweepInterval:   time.Minute,
			DataSourceLabel: "Kaggle / Olist",
		},
		API: APIConfig{
			ListenAddr:     ":8000",
			Store:          "memory",
			SeedFile:       "seeds/tickets.json",
			MetricsFile:    "data/processed/metrics.json",
			WebhookTimeout: 5 * time.Second,
		},
		ETL: ETLConfig{
			Input:         "data/raw/olist_orders_dataset.csv",
			Output:        "data/processed/metrics.json",
			DatasetSource: "Olist E-Commerce (Kaggle)",
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration for role from defaults, files, the
// environment and args (without the program name). It returns
// pflag.ErrHelp when --help was requested; the usage has been printed.
func Load(role Role, prog string, args []string) (*Config, error) {
	cfg := Default()
	flags, fv := newFlagSet(role, prog)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(fv.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", fv.envFile, err)
	}

	path := fv.configFile
	if path == "" {
		path = os.Getenv("INBOX_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	fv.apply(flags, cfg)

	if err := cfg.Validate(role); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML file over the defaults. Unknown keys are an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"INBOX_LISTEN_ADDR":       &c.Dashboard.ListenAddr,
		"INBOX_BACKEND_URL":       &c.Dashboard.BackendURL,
		"INBOX_DATA_SOURCE_LABEL": &c.Dashboard.DataSourceLabel,
		"INBOX_API_LISTEN_ADDR":   &c.API.ListenAddr,
		"INBOX_STORE":             &c.API.Store,
		"INBOX_DATABASE_URL":      &c.API.DatabaseURL,
		"INBOX_SEED_FILE":         &c.API.SeedFile,
		"INBOX_METRICS_FILE":      &c.API.MetricsFile,
		"INBOX_WEBHOOK_URL":       &c.API.WebhookURL,
		"INBOX_ETL_INPUT":         &c.ETL.Input,
		"INBOX_ETL_OUTPUT":        &c.ETL.Output,
		"INBOX_LOG_LEVEL":         &c.Log.Level,
		"INBOX_LOG_FORMAT":        &c.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	durations := map[string]*time.Duration{
		"INBOX_REQUEST_TIMEOUT": &c.Dashboard.RequestTimeout,
		"INBOX_VIEW_TTL":        &c.Dashboard.ViewTTL,
		"INBOX_SWEEP_INTERVAL":  &c.Dashboard.SweepInterval,
		"INBOX_WEBHOOK_TIMEOUT": &c.API.WebhookTimeout,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
		}
		*dst = d
	}
	return nil
}

// Validate checks the settings the given role depends on.
func (c *Config) Validate(role Role) error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format)
	}

	switch role {
	case RoleDashboard:
		u, err := url.Parse(c.Dashboard.BackendURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: backend_url %q", ErrInvalid, c.Dashboard.BackendURL)
		}
		if c.Dashboard.RequestTimeout < 0 {
			return fmt.Errorf("%w: request_timeout must not be negative", ErrInvalid)
		}
		if c.Dashboard.ViewTTL <= 0 || c.Dashboard.SweepInterval <= 0 {
			return fmt.Errorf("%w: view_ttl and sweep_interval must be positive", ErrInvalid)
		}
	case RoleAPI:
		switch c.API.Store {
		case "memory":
		case "postgres":
			if c.API.DatabaseURL == "" {
				return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalid)
			}
		default:
			return fmt.Errorf("%w: store %q", ErrInvalid, c.API.Store)
		}
	case RoleETL:
		if c.ETL.Input == "" || c.ETL.Output == "" {
			return fmt.Errorf("%w: etl input and output are required", ErrInvalid)
		}
	}
	return nil
}

type flagValues struct {
	role       Role
	configFile string
	envFile    string
	listen     string
	backendURL string
	store      string
	dbURL      string
	webhookURL string
	input      string
	output     string
	logLevel   string
	logFormat  string
	timeout    time.Duration
}

func newFlagSet(role Role, prog string) (*pflag.FlagSet, *flagValues) {
	fv := &flagValues{role: role}
	flags := pflag.NewFlagSet(prog, pflag.ContinueOnError)
	flags.StringVar(&fv.configFile, "config", "", "path to a YAML config file (default $INBOX_CONFIG)")
	flags.StringVar(&fv.envFile, "env-file", ".env", "dotenv file to load into the environment if present")
	flags.StringVar(&fv.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&fv.logFormat, "log-format", "", "log format: json or console")

	switch role {
	case RoleDashboard:
		flags.StringVarP(&fv.listen, "listen", "l", "", "address to serve the dashboard on")
		flags.StringVar(&fv.backendURL, "backend-url", "", "base URL of the inbox API")
		flags.DurationVar(&fv.timeout, "request-timeout", 0, "per-request timeout for backend calls (0 = none)")
	case RoleAPI:
		flags.StringVarP(&fv.listen, "listen", "l", "", "address to serve the API on")
		flags.StringVar(&fv.store, "store", "", "ticket store: memory or postgres")
		flags.StringVar(&fv.dbURL, "database-url", "", "postgres connection string")
		flags.StringVar(&fv.webhookURL, "webhook-url", "", "URL notified when a ticket is closed or escalated")
	case RoleETL:
		flags.StringVarP(&fv.input, "input", "i", "", "orders CSV to read")
		flags.StringVarP(&fv.output, "output", "o", "", "metrics JSON to write")
	}
	return flags, fv
}

// apply copies only the flags the user actually set.
func (fv *flagValues) apply(flags *pflag.FlagSet, c *Config) {
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("log-level", &c.Log.Level, fv.logLevel)
	set("log-format", &c.Log.Format, fv.logFormat)
	set("backend-url", &c.Dashboard.BackendURL, fv.backendURL)
	set("store", &c.API.Store, fv.store)
	set("database-url", &c.API.DatabaseURL, fv.dbURL)
	set("webhook-url", &c.API.WebhookURL, fv.webhookURL)
	set("input", &c.ETL.Input, fv.input)
	set("output", &c.ETL.Output, fv.output)

	if flags.Changed("listen") {
		if fv.role == RoleAPI {
			c.API.ListenAddr = fv.listen
		} else {
			c.Dashboard.ListenAddr = fv.listen
		}
	}
	if flags.Changed("request-timeout") {
		c.Dashboard.RequestTimeout = fv.timeout
	}
}
