package llm

import "context"

// Provider generates a support reply from conversation history plus the
// knowledge context assembled for this turn. Implementations must report a
// confidence estimate for the generated text; a nil Confidence means the
// oracle produced no usable signal.
type Provider interface {
	Generate(ctx context.Context, messages []Message, knowledge []Knowledge) (Reply, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Knowledge is a question/answer pair grounding the oracle's prompt.
type Knowledge struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Reply struct {
	Text       string
	Confidence *float64
	TokenUsage int
}

// Message roles as used across providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

func confidence(v float64) *float64 {
	return &v
}
