// Package triage maps patient-described symptoms to a medical specialty.
//
// Classification runs through a Classifier implementation: LLMClassifier
// when a language model is configured, KeywordClassifier as the offline
// default. Both only ever emit specialties from the closed set in
// specialist.go; anything else a model hallucinates is rejected before it
// reaches the conversation flow.
package triage

import (
	"context"
	"errors"
)

// Classification is the outcome of analyzing a symptom description.
type Classification struct {
	Specialist Specialist `json:"specialist"`
	// Symptoms is the list of complaints the classifier identified, rendered
	// verbatim in the symptom summary message.
	Symptoms []string `json:"symptoms"`
	// Reason explains the recommendation in patient-facing language.
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	// Fallback marks results produced without a usable model answer
	// (timeout, transport failure, unparseable or out-of-set output).
	Fallback bool `json:"fallback"`
}

// Classifier analyzes free-text symptoms and recommends a specialty.
// Implementations must respect ctx cancellation and return within their
// configured deadline.
type Classifier interface {
	Classify(ctx context.Context, symptoms string) (Classification, error)
}

var (
	// ErrEmptySymptoms is returned when there is no text to classify.
	ErrEmptySymptoms = errors.New("triage: empty symptom description")
	// ErrClassifierUnavailable is returned when the backing model cannot
	// be reached and no fallback result was produced.
	ErrClassifierUnavailable = errors.New("triage: classifier unavailable")
)

// GeneralFallback is the conservative result used whenever classification
// cannot produce a trustworthy answer. Booking a general physician is always
// safe; a wrong specialty is not.
func GeneralFallback() Classification {
	return Classification{
		Specialist: SpecialistGeneralPhysician,
		Reason:     "General health consultation recommended",
		Confidence: 0.5,
		Fallback:   true,
	}
}
