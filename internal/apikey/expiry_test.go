package apikey

import (
	"testing"
	"time"
)

func TestParseExpiry(t *testing.T) {
	cases := []struct {
		option string
		want   time.Duration
	}{
		{"1H", time.Hour},
		{"12h", 12 * time.Hour},
		{"1D", 24 * time.Hour},
		{"30D", 30 * 24 * time.Hour},
		{"1M", 30 * 24 * time.Hour},
		{"1Y", 365 * 24 * time.Hour},
		{"2Y", 2 * 365 * 24 * time.Hour},
		{" 1D ", 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := ParseExpiry(tc.option)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.option, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %v, got %v", tc.option, tc.want, got)
		}
	}
}

func TestParseExpiryRejectsGarbage(t *testing.T) {
	for _, option := range []string{"", "H", "1", "0D", "-1D", "1W", "abc", "D1"} {
		if _, err := ParseExpiry(option); err != ErrInvalidExpiry {
			t.Fatalf("%q: expected ErrInvalidExpiry, got %v", option, err)
		}
	}
}
