package engine

import "testing"

func TestDeriveFeedback(t *testing.T) {
	tests := []struct {
		text string
		want Feedback
	}{
		{"that didn't help at all", FeedbackRetry},
		{"please try again", FeedbackRetry},
		{"I don't understand", FeedbackRetry},
		{"thanks, that helps!", FeedbackHelpful},
		{"perfect, got it", FeedbackHelpful},
		{"how do I reset my password", FeedbackNone},
		{"", FeedbackNone},
		// Mixed sentiment reads as retry.
		{"thanks but that did not help", FeedbackRetry},
	}
	for _, tt := range tests {
		if got := DeriveFeedback(tt.text); got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectRepeatQuestion(t *testing.T) {
	recent := []string{
		"what are your business hours",
		"how do I reset my password",
	}
	if !DetectRepeatQuestion("How do I reset my password", recent) {
		t.Error("near-identical re-ask should be detected")
	}
	if DetectRepeatQuestion("can I get a refund", recent) {
		t.Error("fresh question flagged as repeat")
	}
	if DetectRepeatQuestion("anything", nil) {
		t.Error("no history should never flag a repeat")
	}
}

func TestDetectRepeatQuestionOnlyLastTwo(t *testing.T) {
	recent := []string{
		"how do I reset my password",
		"what are your business hours",
		"can I get a refund",
	}
	// The password question fell out of the two-message window.
	if DetectRepeatQuestion("how do I reset my password", recent) {
		t.Error("questions older than the last two should be ignored")
	}
}
