package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/tsmerge/pkg/identifier"
	"github.com/ccollicutt/tsmerge/pkg/series"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestParseCSV(t *testing.T) {
	data := "\ufefftime, temp ,site\n" +
		"2024-06-01 00:00,4.2,north\n" +
		"2024-06-01 01:00,,north\n" +
		"2024-06-01 02:00,4.5,north,extra\n"

	f, err := ParseCSV("logger.csv", []byte(data), "")
	require.NoError(t, err)

	assert.Equal(t, "logger.csv", f.Label)
	assert.Equal(t, []string{"time", "temp", "site"}, f.Columns)
	require.Len(t, f.Rows, 3)
	assert.Equal(t, 4.2, f.Rows[0]["temp"])
	assert.Equal(t, "north", f.Rows[0]["site"])
	assert.NotContains(t, f.Rows[1], "temp")
	assert.Len(t, f.Rows[2], 3)
}

func TestParseCSV_TimeColumnMovedToFront(t *testing.T) {
	f, err := ParseCSV("a.csv", []byte("temp,stamp\n1,0\n"), "stamp")
	require.NoError(t, err)
	assert.Equal(t, []string{"stamp", "temp"}, f.Columns)
	assert.Equal(t, float64(0), f.Rows[0]["stamp"])
}

func TestParseCSV_NonFiniteNumbersStayText(t *testing.T) {
	f, err := ParseCSV("a.csv", []byte("t,x,y\n0,NaN,-Inf\n"), "")
	require.NoError(t, err)
	assert.Equal(t, "NaN", f.Rows[0]["x"])
	assert.Equal(t, "-Inf", f.Rows[0]["y"])
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		timeColumn string
		wantErr    string
	}{
		{"empty", "", "", "no header row"},
		{"duplicate column", "t,x,x\n", "", "duplicate column"},
		{"unnamed column", "t,,x\n", "", "column 2 has no name"},
		{"missing time column", "t,x\n", "stamp", `time column "stamp" not found`},
		{"bad quoting", "t,x\n1,\"unterminated\n", "", "line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV("a.csv", []byte(tt.data), tt.timeColumn)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "MBA_CPOD_North_Reef_2406_2407_24hr.csv", "t,dpm\n0,3\n60,4\n")

	meta := &identifier.FileMeta{StationID: "N1"}
	l := New(WithMetadata(func(label string) *identifier.FileMeta {
		if label == "MBA_CPOD_North_Reef_2406_2407_24hr.csv" {
			return meta
		}
		return nil
	}))

	f, err := l.Load(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, "MBA_CPOD_North_Reef_2406_2407_24hr.csv", f.Label)
	assert.Equal(t, []string{"t", "dpm"}, f.Columns)
	assert.Len(t, f.Rows, 2)
	assert.Same(t, meta, f.Meta)
}

func TestLoader_LoadMissingFile(t *testing.T) {
	_, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLoader_LoadAllKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "b.csv", "t,x\n0,1\n")
	writeFile(t, dir, "a1.csv", "t,x\n0,2\n")
	writeFile(t, dir, "a2.csv", "t,x\n0,3\n")

	files, err := New(WithConcurrency(2)).LoadAll(context.Background(),
		[]string{b, filepath.Join(dir, "a*.csv")})
	require.NoError(t, err)

	labels := make([]string, len(files))
	for i, f := range files {
		labels[i] = f.Label
	}
	assert.Equal(t, []string{"b.csv", "a1.csv", "a2.csv"}, labels)
}

func TestLoader_LoadAllFailsOnBadFile(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", "t,x\n0,1\n")
	bad := writeFile(t, dir, "bad.csv", "")

	_, err := New().LoadAll(context.Background(), []string{good, bad})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestLoader_ParsedFilesMerge(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "t,x\n2024-06-01 00:00,1\n")
	f, err := New().Load(context.Background(), a)
	require.NoError(t, err)

	samples := f.Samples(series.NewParser())
	require.Len(t, samples, 1)
	assert.Equal(t, 2024, samples[0].At.Year())
}

func TestExpandGlobs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.csv", "c.txt"} {
		writeFile(t, dir, name, "t\n")
	}

	t.Run("pattern matches sorted", func(t *testing.T) {
		got, err := ExpandGlobs([]string{filepath.Join(dir, "*.csv")})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}, got)
	})

	t.Run("deduplicated", func(t *testing.T) {
		p := filepath.Join(dir, "a.csv")
		got, err := ExpandGlobs([]string{p, filepath.Join(dir, "*.csv"), p})
		require.NoError(t, err)
		assert.Equal(t, []string{p, filepath.Join(dir, "b.csv")}, got)
	})

	t.Run("no match returned as-is", func(t *testing.T) {
		pattern := filepath.Join(dir, "*.nonexistent")
		got, err := ExpandGlobs([]string{pattern})
		require.NoError(t, err)
		assert.Equal(t, []string{pattern}, got)
	})

	t.Run("urls untouched", func(t *testing.T) {
		got, err := ExpandGlobs([]string{"s3://bucket/data/*.csv"})
		require.NoError(t, err)
		assert.Equal(t, []string{"s3://bucket/data/*.csv"}, got)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := ExpandGlobs([]string{"[invalid"})
		assert.Error(t, err)
	})
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "a.csv", Label("/data/in/a.csv"))
	assert.Equal(t, "b.csv", Label("https://host/files/b.csv?token=x"))
	assert.Equal(t, "c.csv", Label("mem://localhost/c.csv"))
}
