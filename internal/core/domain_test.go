package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-03-10")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, s := range []string{"", "10-03-2025", "2025/03/10", "2025-13-01", "yesterday"} {
		if _, err := ParseDate(s); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q): got %v, want ErrInvalidDate", s, err)
		}
	}
}
