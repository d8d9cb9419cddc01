package engine

// Feedback is the sentiment derived from a user's follow-up message about
// the bot's previous answer.
type Feedback string

const (
	FeedbackNone    Feedback = "none"
	FeedbackRetry   Feedback = "retry"
	FeedbackHelpful Feedback = "helpful"
)

// TurnSignals captures everything the trust tracker observes about one
// completed turn. OracleConfidence is nil when the oracle produced no
// self-assessment; nil is distinct from zero and skips the confidence
// penalties and boosts that key off it.
type TurnSignals struct {
	OracleConfidence *float64
	RetrievalScore   float64
	Feedback         Feedback
	RepeatQuestion   bool
}

// TrustUpdate is the outcome of folding one turn into session confidence.
type TrustUpdate struct {
	Next    float64
	Penalty float64
	Boost   float64
}

// Cut points for the cross-signal adjustments. A confident answer with
// almost no grounding is treated as likely hallucination; a confident,
// well-grounded answer earns a small boost.
const (
	hallucinationConfFloor    = 0.70
	hallucinationRetrievalCap = 0.20
	groundedConfFloor         = 0.75
	groundedRetrievalFloor    = 0.60
)

// UpdateSessionConfidence folds one turn's signals into the running session
// confidence. Penalties and boosts are summed, applied to the previous value
// with clamping to [0,1], and the result is blended back with EWMA so a
// single turn never moves the needle all the way.
func UpdateSessionConfidence(prev float64, s TurnSignals, cfg Config) TrustUpdate {
	penalty := 0.0
	if s.Feedback == FeedbackRetry {
		penalty += cfg.NegFeedbackPenalty
	}
	if s.RepeatQuestion {
		penalty += cfg.ReaskPenalty
	}
	if s.OracleConfidence != nil {
		mc := *s.OracleConfidence
		if mc < cfg.LowConfLinearStart {
			penalty += cfg.LowConfLinearStart - mc
		}
		if mc >= hallucinationConfFloor && s.RetrievalScore < hallucinationRetrievalCap {
			penalty += cfg.HallucinationPenalty
		}
	}

	boost := 0.0
	if s.Feedback == FeedbackHelpful {
		boost += cfg.HelpfulBoost
	}
	if s.OracleConfidence != nil && *s.OracleConfidence >= groundedConfFloor && s.RetrievalScore >= groundedRetrievalFloor {
		boost += cfg.GroundedBoost
	}
	if boost > cfg.MaxTurnBoost {
		boost = cfg.MaxTurnBoost
	}

	candidate := clamp01(prev - penalty + boost)
	next := cfg.ConfLambda*prev + (1-cfg.ConfLambda)*candidate

	return TrustUpdate{Next: next, Penalty: penalty, Boost: boost}
}

// Floors used when classifying a turn as outright bad or good for the
// session-quality counters surfaced to operators.
const (
	BadTurnPenaltyFloor = 0.25
	GoodTurnBoostFloor  = 0.05
)

// IsBadTurn reports whether the turn's accumulated penalty is severe enough
// to count against the session.
func IsBadTurn(u TrustUpdate) bool { return u.Penalty >= BadTurnPenaltyFloor }

// IsGoodTurn reports whether the turn earned a meaningful boost.
func IsGoodTurn(u TrustUpdate) bool { return u.Boost >= GoodTurnBoostFloor }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
