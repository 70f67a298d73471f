package triage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeLLMClient records the request and plays back a canned response.
type fakeLLMClient struct {
	response string
	err      error
	delay    time.Duration
	lastReq  LLMRequest
}

func (f *fakeLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	f.lastReq = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return LLMResponse{}, ctx.Err()
		}
	}
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Text: f.response, Usage: TokenUsage{TotalTokens: 42}}, nil
}

func TestLLMClassifier_Classify(t *testing.T) {
	tests := []struct {
		name           string
		llmResponse    string
		wantSpecialist Specialist
		wantFallback   bool
		wantConfidence float64
	}{
		{
			name: "clean JSON answer",
			llmResponse: `{"symptoms": "chest pain, palpitations", "recommended_specialist": "cardiologist",
				"specialist_description": "Heart and cardiovascular system specialist", "confidence": 0.92,
				"reasoning": "Chest pain with palpitations points to a cardiac evaluation."}`,
			wantSpecialist: SpecialistCardiologist,
			wantConfidence: 0.92,
		},
		{
			name:           "JSON wrapped in code fence",
			llmResponse:    "```json\n{\"symptoms\": \"itchy rash\", \"recommended_specialist\": \"dermatologist\", \"confidence\": 0.8, \"reasoning\": \"Skin symptoms.\"}\n```",
			wantSpecialist: SpecialistDermatologist,
			wantConfidence: 0.8,
		},
		{
			name:           "symptoms as list",
			llmResponse:    `{"symptoms": ["headache", "dizziness"], "recommended_specialist": "neurologist", "confidence": 0.85, "reasoning": "Neurological signs."}`,
			wantSpecialist: SpecialistNeurologist,
			wantConfidence: 0.85,
		},
		{
			name:           "specialist outside the closed set",
			llmResponse:    `{"symptoms": "sore wing", "recommended_specialist": "veterinarian", "confidence": 0.9, "reasoning": "Flight related."}`,
			wantSpecialist: SpecialistGeneralPhysician,
			wantFallback:   true,
			wantConfidence: 0.5,
		},
		{
			name:           "not JSON at all",
			llmResponse:    "I think you should probably see a heart doctor.",
			wantSpecialist: SpecialistGeneralPhysician,
			wantFallback:   true,
			wantConfidence: 0.5,
		},
		{
			name:           "confidence above one clamped",
			llmResponse:    `{"symptoms": "fever", "recommended_specialist": "general_physician", "confidence": 7, "reasoning": "General."}`,
			wantSpecialist: SpecialistGeneralPhysician,
			wantConfidence: 1,
		},
		{
			name:           "display-form specialist accepted",
			llmResponse:    `{"symptoms": "anxiety", "recommended_specialist": "Psychiatrist", "confidence": 0.7, "reasoning": "Mental health."}`,
			wantSpecialist: SpecialistPsychiatrist,
			wantConfidence: 0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeLLMClient{response: tt.llmResponse}
			classifier := NewLLMClassifier(client, "", 0, nil)

			got, err := classifier.Classify(context.Background(), "my symptoms")
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got.Specialist != tt.wantSpecialist {
				t.Errorf("Classify() specialist = %v, want %v", got.Specialist, tt.wantSpecialist)
			}
			if got.Fallback != tt.wantFallback {
				t.Errorf("Classify() fallback = %v, want %v", got.Fallback, tt.wantFallback)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Classify() confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
			if len(got.Symptoms) == 0 {
				t.Error("Classify() returned no identified symptoms")
			}
		})
	}
}

func TestLLMClassifier_PromptCarriesCatalog(t *testing.T) {
	client := &fakeLLMClient{response: `{"recommended_specialist": "cardiologist", "confidence": 0.9, "reasoning": "x"}`}
	classifier := NewLLMClassifier(client, "claude-3", 0, nil)

	if _, err := classifier.Classify(context.Background(), "chest pain"); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if client.lastReq.Model != "claude-3" {
		t.Errorf("request model = %q, want %q", client.lastReq.Model, "claude-3")
	}
	if len(client.lastReq.System) != 1 {
		t.Fatalf("expected one system prompt, got %d", len(client.lastReq.System))
	}
	system := client.lastReq.System[0]
	for _, s := range AllSpecialists() {
		if !strings.Contains(system, string(s)) {
			t.Errorf("system prompt missing specialty %q", s)
		}
	}
	if !strings.Contains(system, "Be conservative") {
		t.Error("system prompt missing the conservative instruction")
	}
	if len(client.lastReq.Messages) != 1 || client.lastReq.Messages[0].Content != "chest pain" {
		t.Errorf("user message = %+v, want the raw symptoms", client.lastReq.Messages)
	}
}

func TestLLMClassifier_TransportErrorSurfaces(t *testing.T) {
	wantErr := errors.New("model unavailable")
	client := &fakeLLMClient{err: wantErr}
	classifier := NewLLMClassifier(client, "", 0, nil)

	_, err := classifier.Classify(context.Background(), "chest pain")
	if err == nil {
		t.Fatal("Classify() expected error, got nil")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("Classify() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestLLMClassifier_Timeout(t *testing.T) {
	client := &fakeLLMClient{
		response: `{"recommended_specialist": "cardiologist", "confidence": 0.9, "reasoning": "x"}`,
		delay:    200 * time.Millisecond,
	}
	classifier := NewLLMClassifier(client, "", 20*time.Millisecond, nil)

	_, err := classifier.Classify(context.Background(), "chest pain")
	if err == nil {
		t.Fatal("Classify() expected timeout error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Classify() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestLLMClassifier_EmptyInput(t *testing.T) {
	classifier := NewLLMClassifier(&fakeLLMClient{}, "", 0, nil)

	_, err := classifier.Classify(context.Background(), "")
	if !errors.Is(err, ErrEmptySymptoms) {
		t.Fatalf("Classify() error = %v, want ErrEmptySymptoms", err)
	}
}

func TestNewLLMClassifier_NilClientPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil client")
		}
	}()
	NewLLMClassifier(nil, "", 0, nil)
}
