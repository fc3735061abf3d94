package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://catalog.oslri.net/patroninfo", cfg.Library.LoginURL)
	assert.Equal(t, "Ocean State Libraries Log in", cfg.Library.LoginTitle)
	assert.Equal(t, FetcherHTTP, cfg.Library.Fetcher)
	assert.Equal(t, 30*time.Second, cfg.Library.Timeout)
	assert.Equal(t, "OSLRI Due Dates", cfg.Calendar.Name)
	assert.Equal(t, BackendICS, cfg.Calendar.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "~/.local/share/library-due-dates", cfg.DataDir)
	assert.Empty(t, cfg.MetricsFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `library:
  username: "21234000123456"
  pin: "9876"
  fetcher: browser
  timeout: 45s
  login_title: ""
calendar:
  name: Library Loans
  backend: memory
log:
  level: debug
metrics_file: /tmp/due_dates.prom
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "21234000123456", cfg.Library.Username)
	assert.Equal(t, "9876", cfg.Library.PIN)
	assert.Equal(t, FetcherBrowser, cfg.Library.Fetcher)
	assert.Equal(t, 45*time.Second, cfg.Library.Timeout)
	assert.Empty(t, cfg.Library.LoginTitle)
	assert.Equal(t, "Library Loans", cfg.Calendar.Name)
	assert.Equal(t, BackendMemory, cfg.Calendar.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format, "unset keys keep their default")
	assert.Equal(t, "/tmp/due_dates.prom", cfg.MetricsFile)
}

func TestLoad_DefaultPathFile(t *testing.T) {
	home := isolate(t)

	writeFile(t, filepath.Join(home, ".config", "library-due-dates", "config.yaml"),
		"calendar:\n  name: From Home\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "From Home", cfg.Calendar.Name)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "library:\n  pin: \"1111\"\n")

	t.Setenv("DUEDATES_LIBRARY_PIN", "2222")
	t.Setenv("DUEDATES_CALENDAR_BACKEND", "memory")
	t.Setenv("DUEDATES_LIBRARY_TIMEOUT", "5s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "2222", cfg.Library.PIN, "environment beats file")
	assert.Equal(t, BackendMemory, cfg.Calendar.Backend)
	assert.Equal(t, 5*time.Second, cfg.Library.Timeout)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)

	writeFile(t, ".env", "DUEDATES_LIBRARY_USERNAME=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("DUEDATES_LIBRARY_USERNAME") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Library.Username)
}

func TestLoad_CredentialsFile(t *testing.T) {
	isolate(t)

	creds := filepath.Join(t.TempDir(), "creds")
	writeFile(t, creds, "21234000123456\n4321\n")
	t.Setenv("DUEDATES_LIBRARY_CREDENTIALS_FILE", creds)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "21234000123456", cfg.Library.Username)
	assert.Equal(t, "4321", cfg.Library.PIN)

	t.Setenv("DUEDATES_LIBRARY_PIN", "override")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.Library.PIN, "explicit PIN wins over the file")
	assert.Equal(t, "21234000123456", cfg.Library.Username)
}

func TestReadCredentials(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		content  string
		wantUser string
		wantPIN  string
		wantErr  bool
	}{
		{name: "two lines", content: "user\n1234\n", wantUser: "user", wantPIN: "1234"},
		{name: "crlf and padding", content: " user \r\n 1234 \r\n", wantUser: "user", wantPIN: "1234"},
		{name: "no trailing newline", content: "user\n1234", wantUser: "user", wantPIN: "1234"},
		{name: "extra lines ignored", content: "user\n1234\ncomment\n", wantUser: "user", wantPIN: "1234"},
		{name: "missing pin", content: "user\n", wantErr: true},
		{name: "empty", content: "", wantErr: true},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "creds"+string(rune('a'+i)))
			writeFile(t, path, tt.content)

			user, pin, err := ReadCredentials(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, tt.wantPIN, pin)
		})
	}

	_, _, err := ReadCredentials(filepath.Join(dir, "absent"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "google with credentials", mutate: func(c *Config) {
			c.Calendar.Backend = BackendGoogle
			c.Calendar.GoogleCredentials = "/etc/creds.json"
		}},
		{name: "google without credentials", mutate: func(c *Config) {
			c.Calendar.Backend = BackendGoogle
		}, wantErr: "calendar.google_credentials"},
		{name: "unknown backend", mutate: func(c *Config) {
			c.Calendar.Backend = "caldav"
		}, wantErr: "calendar.backend"},
		{name: "unknown fetcher", mutate: func(c *Config) {
			c.Library.Fetcher = "curl"
		}, wantErr: "library.fetcher"},
		{name: "relative login url", mutate: func(c *Config) {
			c.Library.LoginURL = "/patroninfo"
		}, wantErr: "library.login_url"},
		{name: "empty calendar name", mutate: func(c *Config) {
			c.Calendar.Name = "  "
		}, wantErr: "calendar.name"},
		{name: "ics without path", mutate: func(c *Config) {
			c.Calendar.ICSPath = ""
		}, wantErr: "calendar.ics_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSave(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Library.Username = "patron"
	cfg.Calendar.Backend = BackendMemory

	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSave_Errors(t *testing.T) {
	assert.Error(t, Save("", Default()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/data", filepath.Join(home, "data")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~user/x", "~user/x"},
	}

	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		require.NoError(t, err)
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
