package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ccollicutt/tsmerge/pkg/config"
	"github.com/ccollicutt/tsmerge/pkg/detector"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create %s: %v", name, err)
	}
	return path
}

func layoutMatch(name, layout string, confidence float64) *detector.FormatMatch {
	return &detector.FormatMatch{
		Format:     &detector.TimestampFormat{Name: name, Layout: layout},
		Confidence: confidence,
	}
}

func TestGenerateStarterConfig(t *testing.T) {
	content, err := generateStarterConfig("/data/logger.csv", "time", layoutMatch("European date format (DD/MM/YYYY)", "02/01/2006 15:04:05", 0.95))
	if err != nil {
		t.Fatalf("generateStarterConfig() error = %v", err)
	}

	checks := []string{
		"# Detected format: European date format (DD/MM/YYYY) (95% confidence)",
		"inputs:",
		"/data/logger.csv",
		"mode: sequential",
		"column: time",
		"02/01/2006 15:04:05",
	}
	for _, check := range checks {
		if !strings.Contains(string(content), check) {
			t.Errorf("Config missing %q\n%s", check, content)
		}
	}
}

func TestGenerateStarterConfig_Loads(t *testing.T) {
	content, err := generateStarterConfig("/data/logger.csv", "stamp", &detector.FormatMatch{
		Format:     &detector.TimestampFormat{Name: "Unix timestamp (milliseconds)", Unit: time.Millisecond},
		Confidence: 1,
	})
	if err != nil {
		t.Fatalf("generateStarterConfig() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "tsmerge.yaml")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("generated config does not load: %v\n%s", err, content)
	}
	if cfg.Time.Column != "stamp" {
		t.Errorf("Time.Column = %q", cfg.Time.Column)
	}
	if cfg.Time.NumericUnit != time.Millisecond {
		t.Errorf("Time.NumericUnit = %s, want 1ms", cfg.Time.NumericUnit)
	}
	if len(cfg.Time.Layouts) != 0 {
		t.Errorf("Time.Layouts = %v, want none", cfg.Time.Layouts)
	}
}

func TestWriteStarterConfig_Success(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	result := &detector.DetectionResult{
		Column:  "time",
		Matches: []detector.FormatMatch{*layoutMatch("ISO 8601", "2006-01-02T15:04:05", 1.0)},
	}

	var buf strings.Builder
	if err := writeStarterConfig(&buf, result, "/data/test.csv", configPath); err != nil {
		t.Fatalf("writeStarterConfig() error = %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if !strings.Contains(string(content), "2006-01-02T15:04:05") {
		t.Error("Config missing layout")
	}
	if !strings.Contains(buf.String(), "Wrote starter config to") {
		t.Error("Missing confirmation message")
	}
}

func TestWriteStarterConfig_NoOverwrite(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "existing.yaml")
	if err := os.WriteFile(configPath, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := &detector.DetectionResult{
		Matches: []detector.FormatMatch{*layoutMatch("ISO 8601", "2006-01-02T15:04:05", 1.0)},
	}

	err := writeStarterConfig(&strings.Builder{}, result, "/data/test.csv", configPath)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error = %v, want already exists", err)
	}

	content, _ := os.ReadFile(configPath)
	if string(content) != "original" {
		t.Error("Existing config was overwritten")
	}
}

func TestWriteStarterConfig_NoMatch(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "new.yaml")

	err := writeStarterConfig(&strings.Builder{}, &detector.DetectionResult{}, "/data/test.csv", configPath)
	if err == nil {
		t.Error("Expected error when no format detected")
	}
	if _, statErr := os.Stat(configPath); statErr == nil {
		t.Error("Config file should not be created")
	}
}

func TestRunDetect_Text(t *testing.T) {
	path := writeCSV(t, "eu.csv", "time,temp\n13/06/2024 10:00:00,4.1\n14/06/2024 10:00:00,4.2\n")

	stdout, _, err := execute(t, NewDetectCommand(), path)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	for _, want := range []string{
		"Time column: time",
		"Values sampled: 2",
		"Detected Format: European date format (DD/MM/YYYY)",
		`- "02/01/2006 15:04:05"`,
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q\n%s", want, stdout)
		}
	}
}

func TestRunDetect_NoMatch(t *testing.T) {
	path := writeCSV(t, "odd.csv", "time,temp\nyesterday,4.1\n")

	stdout, _, err := execute(t, NewDetectCommand(), path)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !strings.Contains(stdout, "No time format detected.") {
		t.Errorf("stdout missing no-match message\n%s", stdout)
	}
}

func TestRunDetect_JSON(t *testing.T) {
	path := writeCSV(t, "unix.csv", "stamp,temp\n1717200000,4.1\n1717203600,4.2\n")

	stdout, _, err := execute(t, NewDetectCommand(), "-o", "json", path)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	var out JSONOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if out.Column != "stamp" {
		t.Errorf("Column = %q", out.Column)
	}
	if len(out.Matches) != 1 {
		t.Fatalf("Matches = %d, want best match only", len(out.Matches))
	}
	if out.Matches[0].NumericUnit != "1s" || out.Matches[0].Layout != "" {
		t.Errorf("best match = %+v", out.Matches[0])
	}
}

func TestRunDetect_WriteConfig(t *testing.T) {
	path := writeCSV(t, "logger.csv", firstDeployment)
	configPath := filepath.Join(t.TempDir(), "tsmerge.yaml")

	if _, _, err := execute(t, NewDetectCommand(), "-w", configPath, path); err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	cfg, err := config.Load(context.Background(), configPath)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if len(cfg.Inputs) != 1 || cfg.Inputs[0] != path {
		t.Errorf("Inputs = %v, want [%s]", cfg.Inputs, path)
	}
	if len(cfg.Time.Layouts) != 1 || cfg.Time.Layouts[0] != "2006-01-02 15:04" {
		t.Errorf("Layouts = %v", cfg.Time.Layouts)
	}
}

func TestRunDetect_MissingFile(t *testing.T) {
	if _, _, err := execute(t, NewDetectCommand(), "/nonexistent/file.csv"); err == nil {
		t.Error("Expected error for missing file")
	}
}
