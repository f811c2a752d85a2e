package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"node.town/triage/convo"
	"node.town/triage/llm"
)

var ErrMalformedResponse = errors.New("malformed suggestion response")

type Generator interface {
	Generate(
		ctx context.Context,
		patientContext string,
		conversation string,
	) ([]convo.Suggestion, error)
}

type LLMGenerator struct {
	model llm.LanguageModel
}

func NewLLMGenerator(model llm.LanguageModel) *LLMGenerator {
	return &LLMGenerator{model: model}
}

const systemPrompt = "Je bent een AI-assistent voor medische triagisten. " +
	"Analyseer het gesprek en geef suggesties."

var userPrompt = template.Must(template.New("suggestions").Parse(
	`BELANGRIJKE PATIËNTINFORMATIE:
{{.Context}}

INSTRUCTIES:
- Gebruik de patiëntinformatie om relevante suggesties te geven
- Let op mogelijke interacties met bestaande medicatie
- Geef korte, praktische suggesties
- Focus op veiligheid en protocollen
- Gebruik Nederlandse taal, niveau B1
- Categoriseer als: warning (rood), info (geel), question (blauw)
- Prioriteit: high, medium, low

BELANGRIJK: Voor de 'ecdReference' MOET je een exacte, ongewijzigde zin uit het verstrekte PATIËNTDOSSIER kopiëren. Parafraseer nooit.

Antwoord ALLEEN met een JSON array in dit exacte formaat:
[{"type": "warning", "text": "Suggestie tekst", "priority": "high", "ecdReference": "Exacte zin uit ECD als bron", "ecdReferenceDate": "JJJJ-MM-DD", "ecdReferenceSource": "Bron uit ECD (bijv. Patiëntinformatie ECD P123456)"}]

Analyseer dit gesprek en geef suggesties:
{{.Conversation}}`))

func (g *LLMGenerator) Generate(
	ctx context.Context,
	patientContext string,
	conversation string,
) ([]convo.Suggestion, error) {
	var prompt bytes.Buffer
	err := userPrompt.Execute(&prompt, struct {
		Context      string
		Conversation string
	}{patientContext, conversation})
	if err != nil {
		return nil, fmt.Errorf("render suggestion prompt: %w", err)
	}

	req := (&llm.ChatCompletionRequest{
		Label:        "suggestions",
		SystemPrompt: systemPrompt,
	}).WithUserMessage(prompt.String())

	out, err := g.model.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	return ParseSuggestions(out)
}

type rawSuggestion struct {
	Type               string `json:"type"`
	Text               string `json:"text"`
	Priority           string `json:"priority"`
	EcdReference       string `json:"ecdReference"`
	EcdReferenceDate   string `json:"ecdReferenceDate"`
	EcdReferenceSource string `json:"ecdReferenceSource"`
}

// ParseSuggestions decodes a model's JSON array reply. Markdown code fences
// around the array are ignored. Items of an unknown kind or without text are
// dropped and an unknown priority becomes medium.
func ParseSuggestions(reply string) ([]convo.Suggestion, error) {
	body := stripCodeFence(reply)

	var raw []rawSuggestion
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := make([]convo.Suggestion, 0, len(raw))
	for _, r := range raw {
		kind, ok := convo.ParseKind(r.Type)
		if !ok || strings.TrimSpace(r.Text) == "" {
			continue
		}
		priority, ok := convo.ParsePriority(r.Priority)
		if !ok {
			priority = convo.PriorityMedium
		}
		out = append(out, convo.Suggestion{
			Kind:              kind,
			Text:              strings.TrimSpace(r.Text),
			Priority:          priority,
			EvidenceReference: r.EcdReference,
			EvidenceDate:      r.EcdReferenceDate,
			EvidenceSource:    r.EcdReferenceSource,
		})
	}
	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
