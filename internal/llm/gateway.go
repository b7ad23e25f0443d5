package llm

import (
	"context"

	"github.com/raine/vendepro/internal/listing"
)

// DefaultEnhanceInstruction asks for a studio-style background without
// altering the item itself.
const DefaultEnhanceInstruction = "Mejora el fondo para que parezca un estudio profesional, ajusta la iluminación y el contraste para resaltar el producto sin modificarlo."

// FallbackAnalysis is returned when the listing model produces no text.
const FallbackAnalysis = "No se pudo generar el análisis."

// Gateway is the generative service behind the listing workflow.
type Gateway interface {
	// Analyze researches the market for the pictured item and writes the listing.
	Analyze(ctx context.Context, image []byte, details listing.Details) (*listing.AnalysisResult, error)
	// Enhance returns an edited PNG of image, or nil if the model returned no image.
	Enhance(ctx context.Context, image []byte, instruction string) ([]byte, error)
}

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}
