package engine

import (
	"regexp"
	"strings"
)

var (
	retryPattern   = regexp.MustCompile(`(?i)(answer again|not.*help|didn.?t.*help|retry|try again|please explain|i don'?t understand)`)
	helpfulPattern = regexp.MustCompile(`(?i)(thanks|thank you|that helps|that'?s helpful|got it|perfect|great|appreciate|helpful)`)
)

// DeriveFeedback infers sentiment about the previous answer from the user's
// message text. Retry patterns win over helpful patterns so "thanks, but
// that didn't help" reads as a retry.
func DeriveFeedback(text string) Feedback {
	if retryPattern.MatchString(text) {
		return FeedbackRetry
	}
	if helpfulPattern.MatchString(text) {
		return FeedbackHelpful
	}
	return FeedbackNone
}

// repeatSimilarityFloor is the Jaccard similarity above which a new question
// counts as a re-ask of a recent one.
const repeatSimilarityFloor = 0.85

// DetectRepeatQuestion reports whether the query re-asks one of the user's
// last two questions. recentUserTexts should hold the user's prior messages
// oldest first; only the final two are compared.
func DetectRepeatQuestion(query string, recentUserTexts []string) bool {
	if len(recentUserTexts) > 2 {
		recentUserTexts = recentUserTexts[len(recentUserTexts)-2:]
	}
	q := strings.ToLower(query)
	for _, prev := range recentUserTexts {
		if Jaccard(q, strings.ToLower(prev)) > repeatSimilarityFloor {
			return true
		}
	}
	return false
}
