package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/medbook-ai-platform/cmd/mainconfig"
	appbootstrap "github.com/wolfman30/medbook-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medbook-ai-platform/internal/config"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// Smoke-tests the configured symptom classifier against a few descriptions.
// Usage: llmtest ["my chest hurts when I climb stairs"]
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	classifier := appbootstrap.BuildClassifier(ctx, cfg, awsCfg, logger)
	fmt.Printf("provider=%s classifier=%T\n\n", cfg.LLMProvider, classifier)

	inputs := []string{
		"I have chest pain and shortness of breath when climbing stairs",
		"itchy red rash on both arms that won't go away",
		"my lower back hurts after lifting and the pain shoots down my leg",
	}
	if len(os.Args) > 1 {
		inputs = []string{strings.Join(os.Args[1:], " ")}
	}

	for _, symptoms := range inputs {
		start := time.Now()
		result, err := classifier.Classify(ctx, symptoms)
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			fmt.Printf("❌ %q: %v\n", symptoms, err)
			continue
		}
		fmt.Printf("✅ %q (%v)\n", symptoms, elapsed)
		fmt.Printf("   specialist=%s confidence=%.2f fallback=%v\n", result.Specialist, result.Confidence, result.Fallback)
		if len(result.Symptoms) > 0 {
			fmt.Printf("   symptoms: %s\n", strings.Join(result.Symptoms, "; "))
		}
		if result.Reason != "" {
			fmt.Printf("   reason: %s\n", result.Reason)
		}
		fmt.Println()
	}
}
