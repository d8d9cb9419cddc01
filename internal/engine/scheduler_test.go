package engine

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestShouldSummarize(t *testing.T) {
	cfg := DefaultConfig()
	fires := []int{2, 4, 6, 100}
	for _, n := range fires {
		if !ShouldSummarize(n, cfg) {
			t.Errorf("expected summary at %d messages", n)
		}
	}
	skips := []int{0, 1, 3, 5, 99}
	for _, n := range skips {
		if ShouldSummarize(n, cfg) {
			t.Errorf("unexpected summary at %d messages", n)
		}
	}
}

func TestShouldSummarizeDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SummaryInterval = 0
	if ShouldSummarize(4, cfg) {
		t.Error("zero interval should disable summaries")
	}
}

func TestTruncateSummary(t *testing.T) {
	short := "Customer asked about refunds."
	if got := TruncateSummary(short); got != short {
		t.Errorf("short summary should pass through, got %q", got)
	}
	long := strings.Repeat("a", SummaryMaxLen+50)
	if got := TruncateSummary(long); len(got) != SummaryMaxLen {
		t.Errorf("expected truncation to %d chars, got %d", SummaryMaxLen, len(got))
	}
}

func TestTruncateSummaryMultiByte(t *testing.T) {
	// 600 three-byte runes. Truncation must count characters, not bytes,
	// and never split a rune at the boundary.
	long := strings.Repeat("€", SummaryMaxLen+100)
	got := TruncateSummary(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated summary is not valid UTF-8 (%d bytes)", len(got))
	}
	if n := utf8.RuneCountInString(got); n != SummaryMaxLen {
		t.Errorf("expected %d runes, got %d", SummaryMaxLen, n)
	}

	exact := strings.Repeat("€", SummaryMaxLen)
	if got := TruncateSummary(exact); got != exact {
		t.Errorf("summary at the cap should pass through unchanged")
	}
}
