// Package sections reads the heading-delimited reply the listing model is
// instructed to produce. It understands exactly one construct: a "###"
// heading line followed by free text up to the next heading.
package sections

import (
	"regexp"
	"strings"
)

// Heading contract, in the order the model is asked to emit them.
const (
	HeadingImageAnalysis = "📸 ANÁLISIS DE IMAGEN"
	HeadingPriceStrategy = "💰 PRECIO Y ESTRATEGIA"
	HeadingTitle         = "📝 TÍTULO OPTIMIZADO (TEXTO PLANO)"
	HeadingDescription   = "✍️ DESCRIPCIÓN MAESTRA (TEXTO PLANO)"
	HeadingFavorites     = "💬 MENSAJE PARA FAVORITOS (TEXTO PLANO)"
	HeadingQuickReplies  = "⚡ RESPUESTAS RÁPIDAS (TEXTO PLANO)"
	HeadingProTips       = "🎯 PROTIPS DE NEGOCIACIÓN"
)

// Headings is the full heading vocabulary in contract order.
var Headings = []string{
	HeadingImageAnalysis,
	HeadingPriceStrategy,
	HeadingTitle,
	HeadingDescription,
	HeadingFavorites,
	HeadingQuickReplies,
	HeadingProTips,
}

// Marker is the literal heading delimiter.
const Marker = "### "

// plainTextMarker is appended to headings whose body must be copy-paste ready.
const plainTextMarker = "(TEXTO PLANO)"

var markerRe = regexp.MustCompile(`###\s+`)

// Kind tells the renderer how to present a section.
type Kind int

const (
	// Narrative sections are markdown-lite and rendered as bullet rows.
	Narrative Kind = iota
	// PlainText sections are shown verbatim for copying into a listing.
	PlainText
	// ChatReply sections are plain text meant to be sent to buyers.
	ChatReply
)

func (k Kind) String() string {
	switch k {
	case Narrative:
		return "Narrative"
	case PlainText:
		return "PlainText"
	case ChatReply:
		return "ChatReply"
	default:
		return "Unknown"
	}
}

var (
	plainTextKeywords = []string{"TÍTULO", "DESCRIPCIÓN", "MENSAJE", "RESPUESTAS"}
	chatKeywords      = []string{"MENSAJE", "RESPUESTAS"}
)

// Classify maps a section title to its presentation kind.
func Classify(title string) Kind {
	if containsAny(title, chatKeywords) {
		return ChatReply
	}
	if containsAny(title, plainTextKeywords) {
		return PlainText
	}
	return Narrative
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Section is one labeled block of the reply.
type Section struct {
	Title   string
	Content string
	Kind    Kind
}

// IsPlainText reports whether the section is rendered verbatim.
func (s Section) IsPlainText() bool {
	return s.Kind == PlainText || s.Kind == ChatReply
}

// IsChat reports whether the section holds buyer-facing messages.
func (s Section) IsChat() bool {
	return s.Kind == ChatReply
}

// DisplayTitle is the title without the plain-text annotation.
func (s Section) DisplayTitle() string {
	return strings.TrimSpace(strings.ReplaceAll(s.Title, plainTextMarker, ""))
}

// Parse splits text into sections in document order. Text without any
// heading marker yields a single untitled section holding the whole text.
func Parse(text string) []Section {
	if !markerRe.MatchString(text) {
		return []Section{{Content: strings.TrimSpace(text), Kind: Narrative}}
	}

	var out []Section
	for _, chunk := range markerRe.Split(text, -1) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		lines := strings.Split(chunk, "\n")
		title := strings.TrimSpace(lines[0])
		content := strings.TrimSpace(strings.Join(lines[1:], "\n"))
		out = append(out, Section{
			Title:   title,
			Content: content,
			Kind:    Classify(title),
		})
	}
	return out
}

var bulletRe = regexp.MustCompile(`^[-*]\s?`)

// RenderFormattedContent turns content into display rows, replacing a
// leading "-" or "*" bullet with "•". Nothing else is interpreted.
func RenderFormattedContent(content string) []string {
	lines := strings.Split(content, "\n")
	rows := make([]string, len(lines))
	for i, line := range lines {
		rows[i] = bulletRe.ReplaceAllString(line, "• ")
	}
	return rows
}

var clipboardStripper = strings.NewReplacer("*", "", "#", "", "_", "", "~", "")

// CleanForClipboard strips markdown emphasis characters before copying.
func CleanForClipboard(content string) string {
	return strings.TrimSpace(clipboardStripper.Replace(content))
}
