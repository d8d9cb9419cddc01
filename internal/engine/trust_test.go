package engine

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func fptr(v float64) *float64 { return &v }

func TestUpdateSessionConfidenceCleanTurn(t *testing.T) {
	cfg := DefaultConfig()
	got := UpdateSessionConfidence(1.0, TurnSignals{
		OracleConfidence: fptr(0.9),
		RetrievalScore:   0.8,
		Feedback:         FeedbackNone,
	}, cfg)

	if !approx(got.Penalty, 0) {
		t.Errorf("expected no penalty, got %v", got.Penalty)
	}
	if !approx(got.Boost, 0.05) {
		t.Errorf("expected grounded boost 0.05, got %v", got.Boost)
	}
	if !approx(got.Next, 1.0) {
		t.Errorf("expected confidence to hold at 1.0, got %v", got.Next)
	}
}

func TestUpdateSessionConfidenceBadTurn(t *testing.T) {
	cfg := DefaultConfig()
	got := UpdateSessionConfidence(1.0, TurnSignals{
		OracleConfidence: fptr(0.3),
		RetrievalScore:   0.1,
		Feedback:         FeedbackRetry,
		RepeatQuestion:   true,
	}, cfg)

	// retry 0.30 + repeat 0.15 + linear (0.5 - 0.3) = 0.65
	if !approx(got.Penalty, 0.65) {
		t.Errorf("expected penalty 0.65, got %v", got.Penalty)
	}
	if !approx(got.Boost, 0) {
		t.Errorf("expected no boost, got %v", got.Boost)
	}
	if !approx(got.Next, 0.74) {
		t.Errorf("expected smoothed confidence 0.74, got %v", got.Next)
	}
	if !IsBadTurn(got) {
		t.Error("expected turn to count as bad")
	}
}

func TestUpdateSessionConfidenceHallucination(t *testing.T) {
	cfg := DefaultConfig()
	got := UpdateSessionConfidence(0.9, TurnSignals{
		OracleConfidence: fptr(0.85),
		RetrievalScore:   0.1,
	}, cfg)

	if !approx(got.Penalty, 0.20) {
		t.Errorf("expected hallucination penalty 0.20, got %v", got.Penalty)
	}
	if !approx(got.Next, 0.82) {
		t.Errorf("expected smoothed confidence 0.82, got %v", got.Next)
	}
}

func TestUpdateSessionConfidenceNilOracle(t *testing.T) {
	cfg := DefaultConfig()
	got := UpdateSessionConfidence(0.8, TurnSignals{RetrievalScore: 0.05}, cfg)

	// No oracle confidence: neither the linear low-confidence penalty nor
	// the hallucination penalty may fire.
	if !approx(got.Penalty, 0) {
		t.Errorf("expected no penalty without oracle confidence, got %v", got.Penalty)
	}
	if !approx(got.Next, 0.8) {
		t.Errorf("expected confidence unchanged, got %v", got.Next)
	}
}

func TestUpdateSessionConfidenceBoostCap(t *testing.T) {
	cfg := DefaultConfig()
	got := UpdateSessionConfidence(0.5, TurnSignals{
		OracleConfidence: fptr(0.9),
		RetrievalScore:   0.9,
		Feedback:         FeedbackHelpful,
	}, cfg)

	// helpful 0.10 + grounded 0.05 exceeds the per-turn cap
	if !approx(got.Boost, cfg.MaxTurnBoost) {
		t.Errorf("expected boost capped at %v, got %v", cfg.MaxTurnBoost, got.Boost)
	}
	if !IsGoodTurn(got) {
		t.Error("expected turn to count as good")
	}
}

func TestUpdateSessionConfidenceStaysInRange(t *testing.T) {
	cfg := DefaultConfig()
	signals := []TurnSignals{
		{OracleConfidence: fptr(0.0), RetrievalScore: 0, Feedback: FeedbackRetry, RepeatQuestion: true},
		{OracleConfidence: fptr(1.0), RetrievalScore: 1, Feedback: FeedbackHelpful},
		{RetrievalScore: 0.5},
	}
	for _, s := range signals {
		for _, prev := range []float64{0, 0.25, 0.5, 0.75, 1} {
			got := UpdateSessionConfidence(prev, s, cfg)
			if got.Next < 0 || got.Next > 1 {
				t.Errorf("confidence left [0,1]: prev=%v signals=%+v next=%v", prev, s, got.Next)
			}
		}
	}
}

func TestUpdateSessionConfidenceConvergesDownward(t *testing.T) {
	cfg := DefaultConfig()
	conf := 1.0
	for i := 0; i < 10; i++ {
		u := UpdateSessionConfidence(conf, TurnSignals{
			OracleConfidence: fptr(0.2),
			RetrievalScore:   0.1,
			Feedback:         FeedbackRetry,
		}, cfg)
		if u.Next >= conf {
			t.Fatalf("turn %d: confidence did not fall (%v -> %v)", i, conf, u.Next)
		}
		conf = u.Next
	}
	if conf > 0.3 {
		t.Errorf("after 10 bad turns confidence still %v", conf)
	}
}

func FuzzUpdateSessionConfidence(f *testing.F) {
	f.Add(1.0, 0.9, 0.8, true, uint8(0), false)
	f.Add(1.0, 0.3, 0.1, true, uint8(1), true)
	f.Add(0.9, 0.85, 0.1, true, uint8(0), false)
	f.Add(0.0, 1.0, 1.0, false, uint8(2), true)
	f.Fuzz(func(t *testing.T, prev, oracle, retrieval float64, hasOracle bool, feedbackCode uint8, repeat bool) {
		cfg := DefaultConfig()
		prev = normalizeUnit(t, prev)
		retrieval = normalizeUnit(t, retrieval)

		signals := TurnSignals{
			RetrievalScore: retrieval,
			Feedback:       []Feedback{FeedbackNone, FeedbackRetry, FeedbackHelpful}[feedbackCode%3],
			RepeatQuestion: repeat,
		}
		if hasOracle {
			signals.OracleConfidence = fptr(normalizeUnit(t, oracle))
		}

		got := UpdateSessionConfidence(prev, signals, cfg)
		if got.Next < 0 || got.Next > 1 {
			t.Fatalf("confidence left [0,1]: prev=%v signals=%+v next=%v", prev, signals, got.Next)
		}
		if got.Penalty < 0 {
			t.Fatalf("negative penalty %v", got.Penalty)
		}
		if got.Boost < 0 || got.Boost > cfg.MaxTurnBoost {
			t.Fatalf("boost %v outside [0,%v]", got.Boost, cfg.MaxTurnBoost)
		}

		// Pure function: same inputs, same triple.
		again := UpdateSessionConfidence(prev, signals, cfg)
		if again != got {
			t.Fatalf("update is not deterministic: %+v vs %+v", got, again)
		}
	})
}

// normalizeUnit folds an arbitrary fuzzed float into [0,1].
func normalizeUnit(t *testing.T, v float64) float64 {
	t.Helper()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Skip("non-finite input")
	}
	return math.Abs(math.Mod(v, 1))
}
