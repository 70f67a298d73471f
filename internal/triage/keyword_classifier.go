package triage

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

var keywordTracer = otel.Tracer("medbook/keyword-classifier")

// KeywordClassifier recommends a specialty by matching symptom keywords.
// It is the offline default when no language model is configured and never
// fails: unmatched input falls through to a general physician.
type KeywordClassifier struct {
	logger   *logging.Logger
	patterns map[Specialist][]*symptomPattern
}

type symptomPattern struct {
	regex   *regexp.Regexp
	weight  float64
	keyword string
}

// NewKeywordClassifier builds the matcher from the specialty registry.
func NewKeywordClassifier(logger *logging.Logger) *KeywordClassifier {
	if logger == nil {
		logger = logging.Default()
	}

	c := &KeywordClassifier{
		logger:   logger,
		patterns: make(map[Specialist][]*symptomPattern),
	}

	for _, s := range specialistOrder {
		profile := specialistProfiles[s]
		patterns := make([]*symptomPattern, 0, len(profile.keywords))
		for _, kw := range profile.keywords {
			// Multi-word keywords ("chest pain", "shortness of breath")
			// are more specific than single words and score higher.
			weight := 0.75
			if strings.Contains(kw, " ") {
				weight = 0.9
			}
			patterns = append(patterns, &symptomPattern{
				regex:   regexp.MustCompile(`(?i)\b` + strings.ReplaceAll(regexp.QuoteMeta(kw), ` `, `\s+`) + `\b`),
				weight:  weight,
				keyword: kw,
			})
		}
		c.patterns[s] = patterns
	}

	return c
}

var _ Classifier = (*KeywordClassifier)(nil)

// Classify scores every specialty against the symptom text and returns the
// best match. Ties resolve in registry order, which puts the more specific
// specialties ahead of general_physician.
func (c *KeywordClassifier) Classify(ctx context.Context, symptoms string) (Classification, error) {
	_, span := keywordTracer.Start(ctx, "triage.keyword_classify")
	defer span.End()

	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return Classification{}, ErrEmptySymptoms
	}

	var (
		best        Specialist
		bestScore   float64
		bestMatches []string
	)

	for _, s := range specialistOrder {
		score, matched := c.score(s, symptoms)
		if score > bestScore {
			best = s
			bestScore = score
			bestMatches = matched
		}
	}

	if bestScore == 0 {
		// Nothing recognizable; a general physician can triage anything.
		span.SetAttributes(attribute.Bool("triage.matched", false))
		return Classification{
			Specialist: SpecialistGeneralPhysician,
			Symptoms:   []string{symptoms},
			Reason:     "General health consultation recommended",
			Confidence: 0.3,
		}, nil
	}

	span.SetAttributes(
		attribute.Bool("triage.matched", true),
		attribute.String("triage.specialist", string(best)),
		attribute.Float64("triage.confidence", bestScore),
		attribute.String("triage.keywords", strings.Join(bestMatches, ",")),
	)

	c.logger.Info("symptoms classified by keyword match",
		"specialist", best,
		"confidence", bestScore,
		"keywords", strings.Join(bestMatches, ","),
	)

	return Classification{
		Specialist: best,
		Symptoms:   bestMatches,
		Reason:     fmt.Sprintf("Reported symptoms (%s) point to a %s", strings.Join(bestMatches, ", "), strings.ToLower(best.Display())),
		Confidence: bestScore,
	}, nil
}

// score returns the strongest pattern weight for the specialty plus a small
// bonus per additional matched keyword, capped at 0.95.
func (c *KeywordClassifier) score(s Specialist, symptoms string) (float64, []string) {
	var (
		top     float64
		matched []string
	)
	for _, p := range c.patterns[s] {
		if p.regex.MatchString(symptoms) {
			matched = append(matched, p.keyword)
			if p.weight > top {
				top = p.weight
			}
		}
	}
	if top == 0 {
		return 0, nil
	}
	score := top + 0.05*float64(len(matched)-1)
	if score > 0.95 {
		score = 0.95
	}
	return score, matched
}
