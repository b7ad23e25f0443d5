package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/raine/vendepro/config"
	"github.com/raine/vendepro/internal/listing"
	"github.com/raine/vendepro/internal/llm"
	"github.com/raine/vendepro/internal/photo"
	"github.com/raine/vendepro/internal/sections"
)

// Runs one analysis (or enhancement) against Gemini without the UI, the
// PIN gate or the history.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <image-path-or-url> [analyze|enhance] [platform] [min-price] [urgency]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY - Required\n")
		os.Exit(1)
	}

	config.LoadEnvFile()
	apiKey := os.Getenv(config.EnvGeminiAPIKey)
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "GEMINI_API_KEY is not set")
		os.Exit(1)
	}

	mode := "analyze"
	if len(os.Args) >= 3 {
		mode = os.Args[2]
	}

	details := listing.DefaultDetails()
	if len(os.Args) >= 4 {
		p, err := listing.ParsePlatform(os.Args[3])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		details.Platform = p
	}
	if len(os.Args) >= 5 {
		details.MinPrice = os.Args[4]
	}
	if len(os.Args) >= 6 {
		u, err := listing.ParseUrgency(os.Args[5])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		details.Urgency = u
	}

	ctx := context.Background()

	image, err := photo.NewLoader().Load(ctx, os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}

	gateway, err := llm.NewGeminiGateway(ctx, apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating Gemini gateway: %v\n", err)
		os.Exit(1)
	}

	switch mode {
	case "analyze":
		runAnalyze(ctx, gateway, image, details)
	case "enhance":
		runEnhance(ctx, gateway, image)
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s (use analyze or enhance)\n", mode)
		os.Exit(1)
	}
}

func runAnalyze(ctx context.Context, gateway llm.Gateway, image []byte, details listing.Details) {
	result, err := gateway.Analyze(ctx, image, details)
	if err != nil {
		fmt.Printf("Error analyzing image: %v\n", err)
		os.Exit(1)
	}

	for _, sec := range sections.Parse(result.FullAnalysis) {
		fmt.Printf("=== %s [%s] ===\n", sec.DisplayTitle(), sec.Kind)
		fmt.Println(strings.Join(sections.RenderFormattedContent(sec.Content), "\n"))
		fmt.Println()
	}

	if len(result.MarketURLs) > 0 {
		fmt.Println("=== SOURCES ===")
		for _, u := range result.MarketURLs {
			fmt.Printf("%s\n  %s\n", u.Title, u.URI)
		}
	}
}

func runEnhance(ctx context.Context, gateway llm.Gateway, image []byte) {
	data, err := gateway.Enhance(ctx, image, llm.DefaultEnhanceInstruction)
	if err != nil {
		fmt.Printf("Error enhancing image: %v\n", err)
		os.Exit(1)
	}
	if len(data) == 0 {
		fmt.Println("The model returned no image")
		os.Exit(1)
	}

	path, err := photo.SaveEnhanced(".", "analyze-image", data)
	if err != nil {
		fmt.Printf("Error saving image: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Saved %s\n", path)
}
