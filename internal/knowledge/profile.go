package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atharvwasthere/Orion/pkg/llm"
)

const profilePrompt = `Summarize these FAQs into a factual company profile.
Keep all operational details, locations, refund terms, and tone.
Format neatly as bullet points or a short summary.

%s`

// ProfileGenerator condenses a company's FAQs into a short profile that is
// prepended to every prompt as global context.
type ProfileGenerator struct {
	store    *Store
	provider llm.Provider
}

func NewProfileGenerator(store *Store, provider llm.Provider) (*ProfileGenerator, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	return &ProfileGenerator{store: store, provider: provider}, nil
}

// Regenerate rebuilds and stores the profile for a company. A company with
// no FAQs gets its profile cleared instead of summarizing nothing.
func (g *ProfileGenerator) Regenerate(ctx context.Context, companyID string) (string, error) {
	start := time.Now()
	profile, err := g.regenerate(ctx, companyID)
	profileDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		profileRunsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	profileRunsTotal.WithLabelValues("ok").Inc()
	return profile, nil
}

func (g *ProfileGenerator) regenerate(ctx context.Context, companyID string) (string, error) {
	faqs, err := g.store.ListFAQs(ctx, companyID)
	if err != nil {
		return "", err
	}
	if len(faqs) == 0 {
		if err := g.store.SetProfile(ctx, companyID, ""); err != nil {
			return "", err
		}
		return "", nil
	}

	var text strings.Builder
	for i, faq := range faqs {
		if i > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(faq.Question)
		text.WriteString("\n")
		text.WriteString(faq.Answer)
	}

	reply, err := g.provider.Generate(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: fmt.Sprintf(profilePrompt, text.String())},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("generate company profile: %w", err)
	}

	profile := strings.TrimSpace(reply.Text)
	if err := g.store.SetProfile(ctx, companyID, profile); err != nil {
		return "", err
	}
	return profile, nil
}
