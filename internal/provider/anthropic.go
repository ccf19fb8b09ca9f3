package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-research/internal/config"
	"github.com/sells-group/lead-research/internal/model"
	"github.com/sells-group/lead-research/internal/resilience"
	"github.com/sells-group/lead-research/pkg/anthropic"
)

const researchSystemPrompt = `You are a B2B sales research analyst. Given a lead (company plus contact), produce a pre-call research packet. Respond with a single valid JSON object and nothing else:
{
  "company_intel": "<what the company does, recent developments, market position>",
  "contact_intel": "<what is known or inferable about the contact's role>",
  "pain_signals": "<likely operational pain points worth probing>",
  "fit_analysis": "<why this lead is or is not a fit>",
  "talk_track": "<suggested opening angle for the first call>",
  "discovery_questions": ["<question>", ...],
  "objection_handles": ["<objection: response>", ...],
  "fit_score": <integer 0-100>,
  "priority": "<hot|warm|cold>",
  "phone": "<contact phone if discoverable, else empty>",
  "title": "<contact title if discoverable, else empty>",
  "linkedin_url": "<contact LinkedIn URL if discoverable, else empty>",
  "website": "<company website if discoverable, else empty>",
  "sources": "<brief note on what the analysis is based on>"
}`

const researchUserPrompt = `Company: %s
Website: %s
Industry: %s
Size: %s
Contact: %s
Title: %s
Email: %s`

// AnthropicProvider implements Provider using the Claude API.
type AnthropicProvider struct {
	client    anthropic.Client
	cfg       config.AnthropicConfig
	limiter   *rate.Limiter
	retry     resilience.Policy
	questions []string
}

// NewAnthropicProvider creates a Claude-backed research provider. questions
// seed the degraded fallback packet when the model's answer cannot be parsed.
func NewAnthropicProvider(client anthropic.Client, cfg config.AnthropicConfig, questions []string) *AnthropicProvider {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 1.0
	}
	if len(questions) == 0 {
		questions = defaultQuestions
	}
	policy := resilience.DefaultPolicy()
	policy.OnRetry = resilience.Logged("anthropic", "research")
	return &AnthropicProvider{
		client:    client,
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		retry:     policy,
		questions: questions,
	}
}

// Research runs one AI research pass over the lead. A response that parses
// into a structured packet yields OutcomeOK; a response with text that does
// not parse yields a fallback packet and OutcomeDegraded. Only transport and
// empty-response failures surface as errors.
func (p *AnthropicProvider) Research(ctx context.Context, lead model.Lead) (*model.ResearchPacket, Outcome, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, OutcomeOK, eris.Wrap(err, "provider: rate limit wait")
	}

	prompt := fmt.Sprintf(researchUserPrompt,
		lead.Company, lead.Website, lead.Industry, lead.Size,
		lead.ContactName, lead.Title, lead.Email,
	)

	resp, err := resilience.Retry(ctx, p.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     p.cfg.Model,
			MaxTokens: p.cfg.MaxTokens,
			System:    researchSystemPrompt,
			Messages: []anthropic.Message{
				{Role: "user", Content: prompt},
			},
		})
	})
	if err != nil {
		return nil, OutcomeOK, eris.Wrapf(err, "provider: research %s", lead.Company)
	}

	resp.Usage.LogCost(p.cfg.Model, "research")

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, OutcomeOK, eris.Errorf("provider: empty response for %s", lead.Company)
	}

	packet, ok := parseResearch(text)
	if !ok {
		zap.L().Warn("provider: unparseable research response, using fallback",
			zap.String("lead_id", lead.ID),
			zap.String("company", lead.Company),
			zap.Int("response_len", len(text)),
		)
		return p.fallbackPacket(lead, text), OutcomeDegraded, nil
	}

	packet.LeadID = lead.ID
	return packet, OutcomeOK, nil
}

// parseResearch attempts to decode a model response into a structured packet.
func parseResearch(text string) (*model.ResearchPacket, bool) {
	var result struct {
		CompanyIntel       string   `json:"company_intel"`
		ContactIntel       string   `json:"contact_intel"`
		PainSignals        string   `json:"pain_signals"`
		FitAnalysis        string   `json:"fit_analysis"`
		TalkTrack          string   `json:"talk_track"`
		DiscoveryQuestions []string `json:"discovery_questions"`
		ObjectionHandles   []string `json:"objection_handles"`
		FitScore           int      `json:"fit_score"`
		Priority           string   `json:"priority"`
		Phone              string   `json:"phone"`
		Title              string   `json:"title"`
		LinkedInURL        string   `json:"linkedin_url"`
		Website            string   `json:"website"`
		Sources            string   `json:"sources"`
	}

	if err := json.Unmarshal([]byte(cleanJSON(text)), &result); err != nil {
		return nil, false
	}

	// A parse that yields no analysis at all is as good as a failure.
	if result.CompanyIntel == "" && result.FitAnalysis == "" && result.TalkTrack == "" {
		return nil, false
	}

	score := result.FitScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	priority := model.Priority(strings.ToLower(result.Priority))
	if !model.ValidPriority(priority) {
		priority = model.PriorityWarm
	}

	return &model.ResearchPacket{
		CompanyIntel:          result.CompanyIntel,
		ContactIntel:          result.ContactIntel,
		PainSignals:           result.PainSignals,
		FitAnalysis:           result.FitAnalysis,
		TalkTrack:             result.TalkTrack,
		DiscoveryQuestions:    result.DiscoveryQuestions,
		ObjectionHandles:      result.ObjectionHandles,
		FitScore:              score,
		Priority:              priority,
		DiscoveredPhone:       result.Phone,
		DiscoveredTitle:       result.Title,
		DiscoveredLinkedInURL: result.LinkedInURL,
		DiscoveredWebsite:     result.Website,
		Sources:               result.Sources,
		Verification:          model.VerificationAIGenerated,
	}, true
}

// fallbackPacket builds a degraded packet from raw response text so the
// caller still gets something actionable for the call prep.
func (p *AnthropicProvider) fallbackPacket(lead model.Lead, text string) *model.ResearchPacket {
	return &model.ResearchPacket{
		LeadID:             lead.ID,
		CompanyIntel:       text,
		TalkTrack:          fmt.Sprintf("Open with a general discovery conversation about %s.", lead.Company),
		DiscoveryQuestions: p.questions,
		FitScore:           0,
		Priority:           model.PriorityCold,
		Sources:            "unstructured model response",
		Degraded:           true,
		Verification:       model.VerificationAIGenerated,
	}
}

// cleanJSON extracts a JSON object from text that may carry markdown code
// fences or leading prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
