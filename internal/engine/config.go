package engine

// EscalationMode controls whether an escalated session can self-heal.
type EscalationMode string

const (
	// EscalationSticky keeps a session escalated until an operator changes
	// its status, regardless of later per-turn decisions.
	EscalationSticky EscalationMode = "sticky"
	// EscalationReactive recomputes session status from the current turn's
	// decision, flipping escalated sessions back to active on a clean turn.
	EscalationReactive EscalationMode = "reactive"
)

// Config carries every operator-tunable threshold of the trust and
// escalation engine. It is constructed once at startup and passed explicitly
// into the scoring functions; nothing in this package reads ambient state.
type Config struct {
	// Escalation policy
	ConfThreshold  float64 // per-turn oracle confidence floor
	EscalationMode EscalationMode

	// Session confidence smoothing (EWMA)
	ConfLambda         float64
	LowConfLinearStart float64

	// Penalties
	HallucinationPenalty float64
	NegFeedbackPenalty   float64
	ReaskPenalty         float64

	// Boosts
	HelpfulBoost  float64
	GroundedBoost float64
	MaxTurnBoost  float64

	// Out-of-scope hysteresis
	OOSThreshold float64
	OOSStreak    int

	// Transcript summarization cadence
	SummaryInterval int

	// Reply tone cut points and the tone pipeline's own EMA factor
	ToneStrong    float64
	ToneWeak      float64
	ToneEscalate  float64
	ToneSmoothing float64

	// Context assembly fan-in
	TopK int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		ConfThreshold:        0.4,
		EscalationMode:       EscalationSticky,
		ConfLambda:           0.6,
		LowConfLinearStart:   0.5,
		HallucinationPenalty: 0.20,
		NegFeedbackPenalty:   0.30,
		ReaskPenalty:         0.15,
		HelpfulBoost:         0.10,
		GroundedBoost:        0.05,
		MaxTurnBoost:         0.10,
		OOSThreshold:         0.25,
		OOSStreak:            2,
		SummaryInterval:      2,
		ToneStrong:           0.8,
		ToneWeak:             0.5,
		ToneEscalate:         0.3,
		ToneSmoothing:        0.2,
		TopK:                 20,
	}
}
