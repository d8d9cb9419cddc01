package engine

// EscalationReason records why a session was handed to a human.
type EscalationReason string

const (
	ReasonNone          EscalationReason = ""
	ReasonLowConfidence EscalationReason = "low_confidence"
	ReasonOutOfScope    EscalationReason = "out_of_scope"
)

// Decision is the escalation policy's verdict for one turn.
type Decision struct {
	Escalate bool
	Reason   EscalationReason
}

// Decide applies the escalation policy for a single turn. Out-of-scope wins
// over low confidence; low confidence requires an oracle self-assessment, so
// a nil confidence never escalates on its own.
func Decide(oosTripped bool, oracleConfidence *float64, cfg Config) Decision {
	if oosTripped {
		return Decision{Escalate: true, Reason: ReasonOutOfScope}
	}
	if oracleConfidence != nil && *oracleConfidence < cfg.ConfThreshold {
		return Decision{Escalate: true, Reason: ReasonLowConfidence}
	}
	return Decision{}
}

// EscalationNotice returns the system message posted into the transcript
// when a session escalates.
func EscalationNotice(reason EscalationReason) string {
	if reason == ReasonOutOfScope {
		return "This conversation has been escalated to human support as your query appears to be outside our knowledge base."
	}
	return "This conversation has been escalated to human support due to low confidence responses. An agent will assist you shortly."
}
