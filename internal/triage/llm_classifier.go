package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

var llmTracer = otel.Tracer("medbook/llm-classifier")

const defaultClassifyTimeout = 10 * time.Second

const classifierSystemPrompt = `You are a medical triage assistant. Analyze the patient's symptoms and recommend the most appropriate specialist.

Available specialists and their areas:
%s

Respond in JSON format with these fields:
- symptoms: list of identified symptoms
- recommended_specialist: one of the specialist types listed above (use exact key name like "cardiologist", "general_physician")
- specialist_description: brief description of why this specialist
- confidence: float between 0 and 1
- reasoning: brief explanation of your recommendation

Be conservative - if symptoms are vague or could be multiple things, recommend general_physician first.`

// LLMClassifier asks a language model to map symptoms to a specialty.
// Model output is untrusted: it must parse as JSON and name a specialty from
// the closed set, otherwise the patient gets the conservative general
// physician recommendation instead of an error.
type LLMClassifier struct {
	client  LLMClient
	modelID string
	timeout time.Duration
	logger  *logging.Logger
	system  string
}

// NewLLMClassifier creates a classifier backed by the given LLM transport.
// modelID may be empty for transports that carry their own model (Gemini).
// timeout bounds each classification call; zero or negative selects the
// 10 second default.
func NewLLMClassifier(client LLMClient, modelID string, timeout time.Duration, logger *logging.Logger) *LLMClassifier {
	if client == nil {
		panic("triage: llm client cannot be nil")
	}
	if timeout <= 0 {
		timeout = defaultClassifyTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}

	var catalog strings.Builder
	for _, s := range specialistOrder {
		profile := specialistProfiles[s]
		fmt.Fprintf(&catalog, "- %s: %s (keywords: %s)\n", s, profile.description, strings.Join(profile.keywords, ", "))
	}

	return &LLMClassifier{
		client:  client,
		modelID: modelID,
		timeout: timeout,
		logger:  logger,
		system:  fmt.Sprintf(classifierSystemPrompt, strings.TrimRight(catalog.String(), "\n")),
	}
}

var _ Classifier = (*LLMClassifier)(nil)

// Classify sends the symptoms to the model and validates its answer.
// Transport failures and timeouts surface as errors so the caller can decide
// how to degrade; unusable model output degrades here to the general
// physician fallback without an error, matching how a vague answer is
// handled.
func (c *LLMClassifier) Classify(ctx context.Context, symptoms string) (Classification, error) {
	ctx, span := llmTracer.Start(ctx, "triage.llm_classify")
	defer span.End()

	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return Classification{}, ErrEmptySymptoms
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Complete(ctx, LLMRequest{
		Model:     c.modelID,
		System:    []string{c.system},
		Messages:  []ChatMessage{{Role: ChatRoleUser, Content: symptoms}},
		MaxTokens: 512,
	})
	if err != nil {
		span.RecordError(err)
		return Classification{}, fmt.Errorf("triage: symptom classification failed: %w", err)
	}

	result, ok := c.parse(resp.Text, symptoms)
	if !ok {
		c.logger.Warn("classifier returned unusable output, falling back to general physician",
			"output_len", len(resp.Text),
		)
	}

	span.SetAttributes(
		attribute.String("triage.specialist", string(result.Specialist)),
		attribute.Float64("triage.confidence", result.Confidence),
		attribute.Bool("triage.fallback", result.Fallback),
		attribute.Int("triage.tokens_total", int(resp.Usage.TotalTokens)),
	)

	c.logger.Info("symptoms classified",
		"specialist", result.Specialist,
		"confidence", result.Confidence,
		"fallback", result.Fallback,
	)

	return result, nil
}

// parse extracts and validates the model's JSON answer. The second return
// reports whether the model's own recommendation was usable.
func (c *LLMClassifier) parse(text, symptoms string) (Classification, bool) {
	// Models wrap JSON in prose or code fences; take the outermost braces.
	content := strings.TrimSpace(text)
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	var result struct {
		Symptoms              json.RawMessage `json:"symptoms"`
		RecommendedSpecialist string          `json:"recommended_specialist"`
		SpecialistDescription string          `json:"specialist_description"`
		Confidence            float64         `json:"confidence"`
		Reasoning             string          `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		fb := GeneralFallback()
		fb.Symptoms = []string{symptoms}
		return fb, false
	}

	specialist, ok := ParseSpecialist(result.RecommendedSpecialist)
	if !ok {
		fb := GeneralFallback()
		fb.Symptoms = []string{symptoms}
		return fb, false
	}

	reason := strings.TrimSpace(result.Reasoning)
	if reason == "" {
		reason = strings.TrimSpace(result.SpecialistDescription)
	}
	if reason == "" {
		reason = specialist.Description()
	}

	confidence := result.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	identified := symptomList(result.Symptoms)
	if len(identified) == 0 {
		identified = []string{symptoms}
	}

	return Classification{
		Specialist: specialist,
		Symptoms:   identified,
		Reason:     reason,
		Confidence: confidence,
	}, true
}

// symptomList accepts either a JSON string or a list of strings, which
// models emit interchangeably for the symptoms field.
func symptomList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		one = strings.TrimSpace(one)
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil
	}
	out := many[:0]
	for _, s := range many {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
