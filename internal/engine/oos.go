package engine

import "regexp"

// Phrasings that signal the user wants out of the bot's lane, either asking
// for a human or declaring the conversation off-topic.
var oosPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)talk to.*human`),
	regexp.MustCompile(`(?i)speak.*person`),
	regexp.MustCompile(`(?i)connect.*agent`),
	regexp.MustCompile(`(?i)transfer.*someone`),
	regexp.MustCompile(`(?i)this.*not.*helping`),
	regexp.MustCompile(`(?i)different.*topic`),
	regexp.MustCompile(`(?i)nothing.*related`),
}

// oosProbTrip is the explicit-signal probability above which a single turn
// trips the detector without waiting for a streak.
const oosProbTrip = 0.6

// ClassifyOutOfScope runs the cheap phrase classifier over a user query.
// When at least one pattern matches it returns a probability that grows
// with the match count, capped at 0.8, and ok=true. With no matches the
// classifier abstains and returns ok=false.
func ClassifyOutOfScope(query string) (prob float64, ok bool) {
	matches := 0
	for _, p := range oosPatterns {
		if p.MatchString(query) {
			matches++
		}
	}
	if matches == 0 {
		return 0, false
	}
	prob = 0.4 + float64(matches)*0.2
	if prob > 0.8 {
		prob = 0.8
	}
	return prob, true
}

// NextOOSStreak advances the consecutive-weak-retrieval counter: a turn
// whose retrieval score falls below the threshold extends the streak, any
// stronger turn resets it to zero.
func NextOOSStreak(prev int, retrievalScore float64, cfg Config) int {
	if retrievalScore < cfg.OOSThreshold {
		return prev + 1
	}
	return 0
}

// OOSTripped reports whether the detector fires this turn, either because
// the weak-retrieval streak reached the configured length or because the
// phrase classifier produced a high-probability explicit signal.
func OOSTripped(streak int, prob *float64, cfg Config) bool {
	if streak >= cfg.OOSStreak {
		return true
	}
	return prob != nil && *prob >= oosProbTrip
}
