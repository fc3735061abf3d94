package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable key
const EnvPrefix = "DUEDATES"

// Fetcher names
const (
	FetcherHTTP    = "http"
	FetcherBrowser = "browser"
)

// Calendar backend names
const (
	BackendICS    = "ics"
	BackendGoogle = "google"
	BackendMemory = "memory"
)

// Config is the top-level application configuration.
type Config struct {
	Library  LibraryConfig  `mapstructure:"library" yaml:"library"`
	Calendar CalendarConfig `mapstructure:"calendar" yaml:"calendar"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`

	// DataDir holds the last run record.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir" default:"~/.local/share/library-due-dates"`
	// MetricsFile, when set, receives a Prometheus textfile after each sync.
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file,omitempty"`
}

// LibraryConfig describes the patron account and how to reach it.
type LibraryConfig struct {
	LoginURL string `mapstructure:"login_url" yaml:"login_url" default:"https://catalog.oslri.net/patroninfo"`
	// LoginTitle is the expected title of the login page. Empty disables the check.
	LoginTitle      string        `mapstructure:"login_title" yaml:"login_title" default:"Ocean State Libraries Log in"`
	Username        string        `mapstructure:"username" yaml:"username,omitempty"`
	PIN             string        `mapstructure:"pin" yaml:"pin,omitempty"`
	CredentialsFile string        `mapstructure:"credentials_file" yaml:"credentials_file,omitempty"`
	Fetcher         string        `mapstructure:"fetcher" yaml:"fetcher" default:"http"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout" default:"30s"`
}

// CalendarConfig selects and configures the calendar backend.
type CalendarConfig struct {
	Name    string `mapstructure:"name" yaml:"name" default:"OSLRI Due Dates"`
	Backend string `mapstructure:"backend" yaml:"backend" default:"ics"`
	ICSPath string `mapstructure:"ics_path" yaml:"ics_path" default:"~/.local/share/library-due-dates/due-dates.ics"`
	// GoogleCredentials is a service account or authorized user JSON file.
	GoogleCredentials string `mapstructure:"google_credentials" yaml:"google_credentials,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" default:"info"`
	Format string `mapstructure:"format" yaml:"format" default:"json"`
}

// DefaultPath returns the config file consulted when no path is given
func DefaultPath() string {
	return filepath.Join("~", ".config", "library-due-dates", "config.yaml")
}

// Default returns a configuration holding only the tag defaults
func Default() *Config {
	v := viper.New()
	bindValues(v, Config{}, "")
	cfg, err := decode(v)
	if err != nil {
		// Defaults are static strings; a decode failure is a programming error.
		panic(err)
	}
	return cfg
}

// Load reads configuration from path, .env and the environment.
//
// An empty path means DefaultPath, which may be absent. An explicit path
// must exist.
func Load(path string) (*Config, error) {
	// Missing .env is fine
	_ = godotenv.Load(".env")

	v := newViper()

	optional := path == ""
	if optional {
		path = DefaultPath()
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(expanded); statErr == nil || !optional {
		v.SetConfigFile(expanded)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if err := cfg.loadCredentialsFile(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	bindValues(v, Config{}, "")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// bindValues registers every mapstructure key with its `default` tag so
// AutomaticEnv can see it during Unmarshal.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}

// loadCredentialsFile fills Username and PIN from CredentialsFile when
// they were not set directly.
func (c *Config) loadCredentialsFile() error {
	if c.Library.CredentialsFile == "" {
		return nil
	}
	if c.Library.Username != "" && c.Library.PIN != "" {
		return nil
	}

	username, pin, err := ReadCredentials(c.Library.CredentialsFile)
	if err != nil {
		return err
	}
	if c.Library.Username == "" {
		c.Library.Username = username
	}
	if c.Library.PIN == "" {
		c.Library.PIN = pin
	}
	return nil
}

// ReadCredentials reads a credentials file: username on the first line,
// PIN on the second.
func ReadCredentials(path string) (username, pin string, err error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", "", err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", "", fmt.Errorf("reading credentials file: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) == "" || strings.TrimSpace(lines[1]) == "" {
		return "", "", fmt.Errorf("credentials file %s: want username and PIN on the first two lines", path)
	}

	return strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1]), nil
}

// Validate checks names and required fields.
func (c *Config) Validate() error {
	var errs []error

	if c.Library.LoginURL == "" {
		errs = append(errs, errors.New("library.login_url is required"))
	} else if u, err := url.Parse(c.Library.LoginURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("library.login_url %q is not an absolute URL", c.Library.LoginURL))
	}

	switch c.Library.Fetcher {
	case FetcherHTTP, FetcherBrowser:
	default:
		errs = append(errs, fmt.Errorf("library.fetcher %q: want %s or %s", c.Library.Fetcher, FetcherHTTP, FetcherBrowser))
	}

	if c.Library.Timeout < 0 {
		errs = append(errs, errors.New("library.timeout must not be negative"))
	}

	if strings.TrimSpace(c.Calendar.Name) == "" {
		errs = append(errs, errors.New("calendar.name is required"))
	}

	switch c.Calendar.Backend {
	case BackendICS:
		if c.Calendar.ICSPath == "" {
			errs = append(errs, errors.New("calendar.ics_path is required for the ics backend"))
		}
	case BackendGoogle:
		if c.Calendar.GoogleCredentials == "" {
			errs = append(errs, errors.New("calendar.google_credentials is required for the google backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("calendar.backend %q: want %s, %s or %s",
			c.Calendar.Backend, BackendICS, BackendGoogle, BackendMemory))
	}

	return errors.Join(errs...)
}

// ExpandPath replaces a leading ~/ with the user's home directory
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
}

// Save writes cfg as YAML to path.
//
// The parent directory is created 0700 and the file is written through a
// temp file and rename, ending up 0600 since it may hold a PIN.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}

	data, err := marshal(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(expanded)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".library-due-dates-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("setting config permissions: %w", err)
	}
	if err := os.Rename(tmpName, expanded); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}

	return nil
}

// Exists reports whether a file is present at path
func Exists(path string) bool {
	expanded, err := ExpandPath(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(expanded)
	return !errors.Is(err, fs.ErrNotExist)
}
