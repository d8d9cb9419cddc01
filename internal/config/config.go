package config

import (
	"github.com/atharvwasthere/Orion/internal/engine"
	"github.com/atharvwasthere/Orion/pkg/config"
	"github.com/atharvwasthere/Orion/pkg/llm"
)

// Config stores environment configuration for Orion.
type Config struct {
	Port        string
	DatabaseURL string
	LLM         llm.Config
	Embedding   llm.Config
	Engine      engine.Config
}

// LoadConfig loads the Orion configuration from environment variables.
// Engine tunables fall back to their built-in defaults when unset.
func LoadConfig() Config {
	return Config{
		Port:        config.GetEnv("PORT", "18030"),
		DatabaseURL: config.RequireEnv("DATABASE_URL"),
		LLM:         llm.LoadConfig(),
		Embedding:   llm.LoadEmbeddingConfig(),
		Engine:      loadEngineConfig(),
	}
}

func loadEngineConfig() engine.Config {
	defaults := engine.DefaultConfig()
	return engine.Config{
		ConfThreshold:        config.GetEnvFloat("CONF_THRESHOLD", defaults.ConfThreshold),
		EscalationMode:       engine.EscalationMode(config.GetEnv("ESCALATION_MODE", string(defaults.EscalationMode))),
		ConfLambda:           config.GetEnvFloat("CONF_LAMBDA", defaults.ConfLambda),
		LowConfLinearStart:   config.GetEnvFloat("LOW_CONF_LINEAR_START", defaults.LowConfLinearStart),
		HallucinationPenalty: config.GetEnvFloat("HALLUCINATION_PENALTY", defaults.HallucinationPenalty),
		NegFeedbackPenalty:   config.GetEnvFloat("NEG_FEEDBACK_PENALTY", defaults.NegFeedbackPenalty),
		ReaskPenalty:         config.GetEnvFloat("REASK_PENALTY", defaults.ReaskPenalty),
		HelpfulBoost:         config.GetEnvFloat("HELPFUL_BOOST", defaults.HelpfulBoost),
		GroundedBoost:        config.GetEnvFloat("GROUNDED_BOOST", defaults.GroundedBoost),
		MaxTurnBoost:         config.GetEnvFloat("MAX_TURN_BOOST", defaults.MaxTurnBoost),
		OOSThreshold:         config.GetEnvFloat("OOS_THRESHOLD", defaults.OOSThreshold),
		OOSStreak:            config.GetEnvInt("OOS_STREAK", defaults.OOSStreak),
		SummaryInterval:      config.GetEnvInt("SUMMARY_INTERVAL", defaults.SummaryInterval),
		ToneStrong:           config.GetEnvFloat("CONF_THRESHOLD_STRONG", defaults.ToneStrong),
		ToneWeak:             config.GetEnvFloat("CONF_THRESHOLD_WEAK", defaults.ToneWeak),
		ToneEscalate:         config.GetEnvFloat("CONF_THRESHOLD_ESCALATE", defaults.ToneEscalate),
		ToneSmoothing:        config.GetEnvFloat("CONF_SMOOTHING_FACTOR", defaults.ToneSmoothing),
		TopK:                 config.GetEnvInt("TOP_K", defaults.TopK),
	}
}
