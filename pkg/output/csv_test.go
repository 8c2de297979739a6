package output

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestCSVFormatter_Format(t *testing.T) {
	f := NewCSVFormatter(FormatOptions{})

	var buf bytes.Buffer
	if err := f.Format(context.Background(), createTestReport(), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	want := "t,x [A],x [B]\n" +
		"2024-06-01T00:00:00Z,1.5,\n" +
		"2024-06-01T01:00:00Z,2,7\n" +
		"2024-06-01T02:00:00Z,,n/a\n"
	if got := buf.String(); got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
}

func TestCSVFormatter_Format_Rejected(t *testing.T) {
	f := NewCSVFormatter(FormatOptions{})

	var buf bytes.Buffer
	err := f.Format(context.Background(), createRejectedReport(), &buf)
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("Format() error = %v, want ErrNoResult", err)
	}
	if buf.Len() != 0 {
		t.Errorf("rejected report wrote %q", buf.String())
	}
}

func TestFingerprint(t *testing.T) {
	a := createTestResult()
	b := createTestResult()

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("equal results should share a fingerprint")
	}
	if len(Fingerprint(a)) != 16 {
		t.Errorf("fingerprint %q should be 16 hex digits", Fingerprint(a))
	}

	b.Rows[1]["x [A]"] = 2.5
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("changed cell should change the fingerprint")
	}

	c := createTestResult()
	c.Rows[0]["x [B]"] = ""
	if Fingerprint(a) == Fingerprint(c) {
		t.Error("nil and empty string should hash differently")
	}

	d := createTestResult()
	d.Rows[0]["t"] = base.Add(time.Millisecond)
	if Fingerprint(a) == Fingerprint(d) {
		t.Error("sub-second instant change should change the fingerprint")
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{float64(0), "0"},
		{12.25, "12.25"},
		{float32(0.5), "0.5"},
		{true, "true"},
		{42, "42"},
		{base, "2024-06-01T00:00:00Z"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}

}
