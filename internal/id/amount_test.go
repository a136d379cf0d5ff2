package id

import (
	"testing"

	clierr "github.com/solterm/solterm/internal/errors"
)

func TestIsPositiveDecimal(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"100", true},
		{"0.5", true},
		{"950.000000", true},
		{"0", false},
		{"0.000", false},
		{"-5", false},
		{"1e6", false},
		{"1,000", false},
		{".5", false},
		{"5.", false},
		{"abc", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsPositiveDecimal(tc.raw); got != tc.want {
			t.Fatalf("IsPositiveDecimal(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw      string
		decimals int
		want     uint64
	}{
		{"1", 6, 1_000_000},
		{"950", 6, 950_000_000},
		{"0.5", 9, 500_000_000},
		{"1.000001", 6, 1_000_001},
		{"1000", 0, 1000},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.raw, tc.decimals)
		if err != nil {
			t.Fatalf("ParseAmount(%q, %d) failed: %v", tc.raw, tc.decimals, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAmount(%q, %d) = %d, want %d", tc.raw, tc.decimals, got, tc.want)
		}
	}
}

func TestParseAmountRejects(t *testing.T) {
	cases := []struct {
		raw      string
		decimals int
		code     clierr.Code
	}{
		{"0", 6, clierr.CodeInvalidAmount},
		{"-1", 6, clierr.CodeInvalidAmount},
		{"abc", 6, clierr.CodeInvalidAmount},
		{"1.0000001", 6, clierr.CodeInvalidAmount},
		{"99999999999999999999999999", 9, clierr.CodeInvalidAmount},
	}
	for _, tc := range cases {
		_, err := ParseAmount(tc.raw, tc.decimals)
		if err == nil {
			t.Fatalf("ParseAmount(%q, %d) accepted invalid input", tc.raw, tc.decimals)
		}
		if clierr.CodeOf(err) != tc.code {
			t.Fatalf("ParseAmount(%q, %d) code = %v, want %v", tc.raw, tc.decimals, clierr.CodeOf(err), tc.code)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		base     uint64
		decimals int
		want     string
	}{
		{950_000_000, 6, "950.000000"},
		{1, 6, "0.000001"},
		{0, 6, "0.000000"},
		{1000, 0, "1000"},
		{1_500_000_000, 9, "1.500000000"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.base, tc.decimals); got != tc.want {
			t.Fatalf("FormatAmount(%d, %d) = %q, want %q", tc.base, tc.decimals, got, tc.want)
		}
	}
}

func TestFormatAmountTrim(t *testing.T) {
	cases := []struct {
		base     uint64
		decimals int
		want     string
	}{
		{950_000_000, 6, "950"},
		{1_500_000_000, 9, "1.5"},
		{1, 6, "0.000001"},
		{0, 9, "0"},
	}
	for _, tc := range cases {
		if got := FormatAmountTrim(tc.base, tc.decimals); got != tc.want {
			t.Fatalf("FormatAmountTrim(%d, %d) = %q, want %q", tc.base, tc.decimals, got, tc.want)
		}
	}
}

func TestAmountToFloat(t *testing.T) {
	if got := AmountToFloat(1_500_000, 6); got != 1.5 {
		t.Fatalf("AmountToFloat = %v, want 1.5", got)
	}
}
