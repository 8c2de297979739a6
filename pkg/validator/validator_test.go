package validator

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/tsmerge/pkg/series"
)

var base = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// file builds a ParsedFile whose rows sit at the given minute offsets.
func file(label string, cols []string, minutes ...int) series.ParsedFile {
	f := series.ParsedFile{Label: label, Columns: cols}
	for i, m := range minutes {
		row := series.Record{cols[0]: base.Add(time.Duration(m) * time.Minute)}
		for _, c := range cols[1:] {
			row[c] = float64(i)
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

func span(from, to, step int) []int {
	var out []int
	for m := from; m <= to; m += step {
		out = append(out, m)
	}
	return out
}

func containsMessage(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestValidate_SingleFileRejected(t *testing.T) {
	for _, mode := range series.Modes {
		t.Run(string(mode), func(t *testing.T) {
			out := Validate([]series.ParsedFile{file("a.csv", []string{"t", "x"}, 0, 10)}, mode, nil)
			assert.False(t, out.IsValid())
			require.NotEmpty(t, out.Errors)
			assert.Contains(t, out.Errors[0], "at least two files")
		})
	}
}

func TestValidate_UnknownMode(t *testing.T) {
	files := []series.ParsedFile{
		file("a.csv", []string{"t", "x"}, 0),
		file("b.csv", []string{"t", "x"}, 10),
	}
	out := Validate(files, series.Mode("zip"), nil)
	assert.False(t, out.IsValid())
	assert.True(t, containsMessage(out.Errors, "unknown merge mode"))
}

func TestValidate_CommonRules(t *testing.T) {
	t.Run("extension mismatch", func(t *testing.T) {
		files := []series.ParsedFile{
			file("a.csv", []string{"t", "x"}, 0),
			file("b.txt", []string{"t", "x"}, 10),
		}
		out := Validate(files, series.ModeStdMerge, nil)
		assert.False(t, out.IsValid())
		assert.True(t, containsMessage(out.Errors, "file type mismatch"))
	})

	t.Run("extension compare ignores case", func(t *testing.T) {
		files := []series.ParsedFile{
			file("a.csv", []string{"t", "x"}, 0),
			file("b.CSV", []string{"t", "x"}, 10),
		}
		out := Validate(files, series.ModeStdMerge, nil)
		assert.True(t, out.IsValid())
	})

	t.Run("time column mismatch", func(t *testing.T) {
		files := []series.ParsedFile{
			file("a.csv", []string{"t", "x"}, 0),
			file("b.csv", []string{"time", "x"}, 10),
		}
		out := Validate(files, series.ModeStdMerge, nil)
		assert.False(t, out.IsValid())
		assert.True(t, containsMessage(out.Errors, "time column mismatch"))
	})
}

func TestValidate_Sequential(t *testing.T) {
	t.Run("consecutive spans", func(t *testing.T) {
		files := []series.ParsedFile{
			file("a.csv", []string{"t", "temp", "do"}, 0, 10, 20),
			file("b.csv", []string{"t", "do", "temp"}, 30, 40),
		}
		out := Validate(files, series.ModeSequential, nil)
		assert.True(t, out.IsValid())
		assert.Empty(t, out.Warnings)
	})

	t.Run("column count mismatch", func(t *testing.T) {
		files := []series.ParsedFile{
			file("a.csv", []string{"t", "temp"}, 0),
			file("b.csv", []string{"t", "temp", "do"}, 30),
		}
		out := Validate(files, series.ModeSequential, nil)
		assert.False(t, out.IsValid())
		assert.True(t, containsMessage(out.Errors, "column count mismatch"))
	})

	t.Run("column name mismatch", func(t *testing.T) {
		files := []series.ParsedFile{
			file("a.csv", []string{"t", "temp"}, 0),
			file("b.csv", []string{"t", "salinity"}, 30),
		}
		out := Validate(files, series.ModeSequential, nil)
		assert.False(t, out.IsValid())
		assert.True(t, containsMessage(out.Errors, "missing: temp; unexpected: salinity"))
	})

	t.Run("overlap is only a warning", func(t *testing.T) {
		files := []series.ParsedFile{
			file("a.csv", []string{"t", "temp"}, 0, 10, 20),
			file("b.csv", []string{"t", "temp"}, 15, 25),
		}
		out := Validate(files, series.ModeSequential, nil)
		assert.True(t, out.IsValid())
		assert.True(t, containsMessage(out.Warnings, "overlap"))
	})
}

func TestValidate_StackParameters(t *testing.T) {
	t.Run("full overlap", func(t *testing.T) {
		files := []series.ParsedFile{
			file("a.csv", []string{"t", "temp"}, span(0, 200, 10)...),
			file("b.csv", []string{"t", "do"}, span(0, 200, 10)...),
		}
		out := Validate(files, series.ModeStackParameters, nil)
		assert.True(t, out.IsValid())
		assert.Empty(t, out.Warnings)
	})

	t.Run("no common points", func(t *testing.T) {
		files := []series.ParsedFile{
			file("a.csv", []string{"t", "temp"}, 0, 10),
			file("b.csv", []string{"t", "do"}, 5, 15),
		}
		out := Validate(files, series.ModeStackParameters, nil)
		assert.False(t, out.IsValid())
		assert.True(t, containsMessage(out.Errors, "no common time points"))
	})

	t.Run("diurnal files with no overlap only warn", func(t *testing.T) {
		files := []series.ParsedFile{
			file("MBA_CPOD_North_Reef_2406_2407_24hr.csv", []string{"t", "dpm"}, 0, 10),
			file("MBA_CPOD_South_Reef_2408_2409_24hr.csv", []string{"t", "dpm"}, 5000, 5010),
		}
		out := Validate(files, series.ModeStackParameters, nil)
		assert.True(t, out.IsValid())
		assert.Empty(t, out.Errors)
		assert.True(t, containsMessage(out.Warnings, "aligned by position"))
	})

	t.Run("sparse overlap warns", func(t *testing.T) {
		files := []series.ParsedFile{
			file("a.csv", []string{"t", "temp"}, span(0, 100, 10)...),
			file("b.csv", []string{"t", "do"}, 0, 10, 20, 1000, 1010, 1020, 1030, 1040, 1050, 1060),
		}
		out := Validate(files, series.ModeStackParameters, nil)
		assert.True(t, out.IsValid())
		assert.True(t, containsMessage(out.Warnings, "only 3 common time point(s)"))
		assert.True(t, containsMessage(out.Warnings, "of [a] time points"))
		assert.True(t, containsMessage(out.Warnings, "of [b] time points"))
	})
}

func TestValidate_StdMergeAppliesOnlyCommonRules(t *testing.T) {
	files := []series.ParsedFile{
		file("a.csv", []string{"t", "temp"}, 0, 10),
		file("b.csv", []string{"t", "do", "ph"}, 500, 510),
	}
	out := Validate(files, series.ModeStdMerge, nil)
	assert.True(t, out.IsValid())
	assert.Empty(t, out.Errors)
}

func TestValidate_DuplicateInstantsWarn(t *testing.T) {
	files := []series.ParsedFile{
		file("a.csv", []string{"t", "temp"}, 0, 10, 10, 20),
		file("b.csv", []string{"t", "temp"}, 30, 40),
	}
	out := Validate(files, series.ModeSequential, nil)
	assert.True(t, out.IsValid())
	assert.True(t, containsMessage(out.Warnings, fmt.Sprintf("[%s] contains 1 duplicate", "a")))
}

func TestValidate_UnparseableRowsIgnored(t *testing.T) {
	a := file("a.csv", []string{"t", "temp"}, 0, 10)
	a.Rows = append(a.Rows, series.Record{"t": "garbage", "temp": 1.0})
	b := file("b.csv", []string{"t", "temp"}, 20, 30)

	out := Validate([]series.ParsedFile{a, b}, series.ModeSequential, nil)
	assert.True(t, out.IsValid())
	assert.Empty(t, out.Warnings)
}
