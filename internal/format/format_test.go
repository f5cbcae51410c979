package format

import (
	"testing"
	"time"
)

func TestFormatSize(t *testing.T) {
	cases := []struct {
		bytes uint64
		unit  string
	}{
		{0, "bytes"},
		{1, "byte"},
		{999, "bytes"},
		{1000, "kilobyte"},
		{1500, "kilobytes"},
		{1_000_000, "megabyte"},
		{1_000_000_000, "gigabyte"},
		{2_000_000_000, "gigabytes"},
	}
	for _, c := range cases {
		got := FormatSize(c.bytes)
		if got.Unit != c.unit {
			t.Errorf("FormatSize(%d).Unit = %q, want %q", c.bytes, got.Unit, c.unit)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{3661 * time.Second, "1h1m1s"},
		{3600 * time.Second, "1h"},
		{-5 * time.Second, "-5s"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}
