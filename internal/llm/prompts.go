package llm

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/raine/vendepro/internal/listing"
	"github.com/raine/vendepro/internal/sections"
)

func formatPrompt(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

const marketPromptTemplate = `
	Investiga el mercado actual para el producto que aparece en la imagen.
	Busca precios actuales en Wallapop, Vinted y Milanuncios en España.
	Datos del vendedor: publicará en %s, precio mínimo aceptable %s, urgencia: %s, entrega: %s.
	Identifica el rango real de precios de venta reciente.
`

func buildMarketPrompt(d listing.Details) string {
	return formatPrompt(marketPromptTemplate, d.Platform, minPriceLabel(d.MinPrice), d.Urgency.Label(), d.Delivery)
}

const analysisPromptTemplate = `
	Eres un experto en venta de segunda mano. Usa la imagen y los datos de mercado para escribir el anuncio perfecto.

	DATOS DE MERCADO:
	%s

	DATOS DEL VENDEDOR:
	- Plataforma: %s
	- Precio mínimo: %s
	- Urgencia: %s
	- Entrega: %s

	Sigue EXACTAMENTE esta estructura, con cada encabezado en su propia línea precedido de "###".
	Las secciones marcadas (TEXTO PLANO) deben ser texto puro, sin markdown ni emojis, listas para copiar y pegar.

	%s
`

// sectionGuides describes what goes under each heading, in contract order.
var sectionGuides = map[string]string{
	sections.HeadingImageAnalysis: "(Markdown) Estado del producto y calidad de la foto.",
	sections.HeadingPriceStrategy: "(Markdown) Precio recomendado, justificación y cuándo rebajar si no se vende.",
	sections.HeadingTitle:         "Un único título potente.",
	sections.HeadingDescription:   "Descripción completa con gancho, detalles técnicos y cierre. Termina con un bloque de hashtags relevantes.",
	sections.HeadingFavorites:     "Un mensaje amable para quien marque el producto como favorito, con una oferta o envío rápido si lo compra hoy.",
	sections.HeadingQuickReplies:  "Tres plantillas cortas: 1. Confirmar disponibilidad. 2. Responder con educación a una oferta ridícula. 3. Resolver dudas sobre el envío.",
	sections.HeadingProTips:       "(Markdown) Cómo actuar si piden rebaja, qué omitir y qué resaltar.",
}

func buildAnalysisPrompt(marketText string, d listing.Details) string {
	var sb strings.Builder
	for i, h := range sections.Headings {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(sections.Marker + h + "\n" + sectionGuides[h])
	}
	return formatPrompt(analysisPromptTemplate,
		strings.TrimSpace(marketText),
		d.Platform,
		minPriceLabel(d.MinPrice),
		d.Urgency.Label(),
		d.Delivery,
		sb.String(),
	)
}

func minPriceLabel(minPrice string) string {
	if strings.TrimSpace(minPrice) == "" {
		return "sin indicar"
	}
	return strings.TrimSpace(minPrice) + "€"
}
