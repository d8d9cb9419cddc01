package engine

import "unicode/utf8"

// ShouldSummarize reports whether a transcript summary is due. The count is
// the number of conversation messages so far (user and bot turns only,
// system notices excluded); a summary fires every SummaryInterval messages.
func ShouldSummarize(conversationMessages int, cfg Config) bool {
	if cfg.SummaryInterval <= 0 || conversationMessages <= 0 {
		return false
	}
	return conversationMessages%cfg.SummaryInterval == 0
}

// SummaryMaxLen caps stored transcript summaries, counted in runes so a
// multi-byte character is never split at the boundary.
const SummaryMaxLen = 500

// TruncateSummary trims a generated summary to the storage cap.
func TruncateSummary(summary string) string {
	if utf8.RuneCountInString(summary) <= SummaryMaxLen {
		return summary
	}
	return string([]rune(summary)[:SummaryMaxLen])
}
