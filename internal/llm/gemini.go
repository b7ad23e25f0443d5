package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/raine/vendepro/internal/listing"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	marketModel  = "gemini-3-flash-preview"
	listingModel = "gemini-3-pro-preview"
	imageModel   = "gemini-2.5-flash-image"

	listingThinkingBudget int32 = 32768
)

// Gemini pricing (per million tokens)
const (
	marketInputPricePerMillion   = 0.50
	marketOutputPricePerMillion  = 3.00
	listingInputPricePerMillion  = 2.00
	listingOutputPricePerMillion = 12.00
	imageInputPricePerMillion    = 0.30
	imageOutputPricePerMillion   = 30.00
)

// GeminiGateway implements Gateway with Google's Gemini API.
type GeminiGateway struct {
	client *genai.Client
}

// NewGeminiGateway creates a Gemini client authenticated with apiKey.
func NewGeminiGateway(ctx context.Context, apiKey string) (*GeminiGateway, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGateway{client: client}, nil
}

// Analyze runs market research with search grounding, then writes the
// listing from the image and the research text.
func (g *GeminiGateway) Analyze(ctx context.Context, image []byte, details listing.Details) (*listing.AnalysisResult, error) {
	if len(image) == 0 {
		return nil, errors.New("no image provided")
	}

	marketResp, err := g.client.Models.GenerateContent(ctx, marketModel,
		imageContents(image, buildMarketPrompt(details)),
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		})
	if err != nil {
		return nil, fmt.Errorf("market research failed: %w", err)
	}
	logUsage("market research llm call", marketModel, marketResp, marketInputPricePerMillion, marketOutputPricePerMillion)

	marketURLs := marketURLsFromResponse(marketResp)
	log.Debug().Int("sources", len(marketURLs)).Msg("market research grounding")

	listingResp, err := g.client.Models.GenerateContent(ctx, listingModel,
		imageContents(image, buildAnalysisPrompt(marketResp.Text(), details)),
		&genai.GenerateContentConfig{
			ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(listingThinkingBudget)},
		})
	if err != nil {
		return nil, fmt.Errorf("listing generation failed: %w", err)
	}
	logUsage("listing llm call", listingModel, listingResp, listingInputPricePerMillion, listingOutputPricePerMillion)

	text := strings.TrimSpace(listingResp.Text())
	if text == "" {
		text = FallbackAnalysis
	}

	return &listing.AnalysisResult{
		FullAnalysis: text,
		MarketURLs:   marketURLs,
	}, nil
}

// Enhance asks the image model to restage the photo.
func (g *GeminiGateway) Enhance(ctx context.Context, image []byte, instruction string) ([]byte, error) {
	if len(image) == 0 {
		return nil, errors.New("no image provided")
	}
	if instruction == "" {
		instruction = DefaultEnhanceInstruction
	}

	resp, err := g.client.Models.GenerateContent(ctx, imageModel, imageContents(image, instruction), nil)
	if err != nil {
		return nil, fmt.Errorf("image enhancement failed: %w", err)
	}
	logUsage("image enhancement llm call", imageModel, resp, imageInputPricePerMillion, imageOutputPricePerMillion)

	return firstImagePart(resp), nil
}

func imageContents(image []byte, prompt string) []*genai.Content {
	parts := []*genai.Part{
		{InlineData: &genai.Blob{Data: image, MIMEType: imageMIMEType(image)}},
		genai.NewPartFromText(prompt),
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// imageMIMEType sniffs the upload; anything unrecognized is sent as JPEG.
func imageMIMEType(image []byte) string {
	if ct := http.DetectContentType(image); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}

// marketURLsFromResponse collects the web sources the search tool grounded on.
func marketURLsFromResponse(resp *genai.GenerateContentResponse) []listing.MarketURL {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}

	var urls []listing.MarketURL
	seen := make(map[string]bool)
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		if seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		urls = append(urls, listing.MarketURL{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return urls
}

// firstImagePart returns the first inline image in the reply. Image models
// may answer with a mix of text and image parts.
func firstImagePart(resp *genai.GenerateContentResponse) []byte {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data
		}
	}
	return nil
}

func usageFromResponse(resp *genai.GenerateContentResponse, inputPrice, outputPrice float64) Usage {
	usage := Usage{}
	if resp == nil || resp.UsageMetadata == nil {
		return usage
	}
	usage.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
	usage.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	usage.TotalTokens = int64(resp.UsageMetadata.TotalTokenCount)
	usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, inputPrice, outputPrice)
	return usage
}

func logUsage(msg, model string, resp *genai.GenerateContentResponse, inputPrice, outputPrice float64) {
	usage := usageFromResponse(resp, inputPrice, outputPrice)
	log.Info().
		Str("model", model).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg(msg)
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}
