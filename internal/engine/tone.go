package engine

import (
	"fmt"
	"math"
	"strings"
)

// ToneMode is how strongly the bot should commit to an answer.
type ToneMode string

const (
	ToneConfident ToneMode = "confident"
	ToneCautious  ToneMode = "cautious"
	ToneUnsure    ToneMode = "unsure"
	ToneEscalate  ToneMode = "escalate"
)

// familiarityBoost rewards queries that mention the company by name.
const familiarityBoost = 0.1

// SmoothConfidence maps a raw confidence through a sigmoid centered at 0.5,
// compressing the extremes while keeping the midrange stable.
func SmoothConfidence(raw float64) float64 {
	return clamp01(1 / (1 + math.Exp(-8*(raw-0.5))))
}

// TurnToneConfidence combines retrieval and oracle confidence into a single
// tone signal: geometric mean of the two, a familiarity boost when the query
// names the company, then sigmoid smoothing. The geometric mean keeps one
// low signal from collapsing the score outright.
func TurnToneConfidence(retrievalScore, oracleConfidence float64, query, companyName string) float64 {
	confidence := math.Sqrt(retrievalScore * oracleConfidence)
	if companyName != "" && strings.Contains(strings.ToLower(query), strings.ToLower(companyName)) {
		confidence = math.Min(1, confidence+familiarityBoost)
	}
	return SmoothConfidence(confidence)
}

// ClassifyToneMode buckets a tone confidence against the configured cut
// points.
func ClassifyToneMode(confidence float64, cfg Config) ToneMode {
	switch {
	case confidence >= cfg.ToneStrong:
		return ToneConfident
	case confidence >= cfg.ToneWeak:
		return ToneCautious
	case confidence >= cfg.ToneEscalate:
		return ToneUnsure
	default:
		return ToneEscalate
	}
}

// BlendToneConfidence folds one turn's tone confidence into the running
// session value with a light EMA, so tone shifts gradually rather than
// whipsawing between turns.
func BlendToneConfidence(current, turn float64, cfg Config) float64 {
	return (1-cfg.ToneSmoothing)*current + cfg.ToneSmoothing*turn
}

// ReplyPrefix returns the hedging prefix for a tone mode. Confident and
// escalate modes add nothing; escalated replies are replaced wholesale.
func ReplyPrefix(mode ToneMode, companyName string) string {
	switch mode {
	case ToneCautious:
		return fmt.Sprintf("Based on what I know about %s, I believe ", companyName)
	case ToneUnsure:
		return "I'm not entirely sure, but it might be "
	default:
		return ""
	}
}

// ApplyTone decorates a reply for the given tone mode.
func ApplyTone(reply string, mode ToneMode, companyName string) string {
	return ReplyPrefix(mode, companyName) + reply
}
