package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

const header = "# library-due-dates configuration\n" +
	"# Any key can be overridden with a DUEDATES_ environment variable,\n" +
	"# e.g. DUEDATES_LIBRARY_PIN or DUEDATES_CALENDAR_BACKEND.\n"

func marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	return buf.Bytes(), nil
}
