package clock

import (
	"testing"
	"time"
)

func TestISO8601MillisFormat(t *testing.T) {
	at := time.Date(2026, 3, 5, 14, 30, 0, 123_000_000, time.UTC)
	got := ISO8601Millis(at)
	want := "2026-03-05T14:30:00.123Z"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFakeClockReturnsFixedInstant(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake{At: at}
	if !c.Now().Equal(at) {
		t.Errorf("Now() = %v, want %v", c.Now(), at)
	}
}
