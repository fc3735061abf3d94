package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/library-due-dates/internal/runner"
)

// lastRunFile holds the most recent report
const lastRunFile = "last_run.json"

// ErrNoRuns is returned when no report has been saved yet
var ErrNoRuns = errors.New("no sync has been recorded yet")

// Storage handles persistence of run reports
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// Dir returns the expanded data directory
func (s *Storage) Dir() string {
	return s.dataDir
}

// lastRunPath returns the path to the last run file
func (s *Storage) lastRunPath() string {
	return filepath.Join(s.dataDir, lastRunFile)
}

// LoadLastRun loads the most recent report from disk
func (s *Storage) LoadLastRun() (*runner.Report, error) {
	data, err := os.ReadFile(s.lastRunPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoRuns
		}
		return nil, fmt.Errorf("reading last run: %w", err)
	}

	var report runner.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing last run: %w", err)
	}

	return &report, nil
}

// SaveRun saves report as the most recent run
func (s *Storage) SaveRun(report *runner.Report) error {
	if report == nil {
		return errors.New("report is nil")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	// Write then rename so a crash never leaves a half-written file
	tmp := s.lastRunPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmp, s.lastRunPath()); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	return nil
}
