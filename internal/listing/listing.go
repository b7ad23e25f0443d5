package listing

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// Platform is the marketplace the listing is written for.
type Platform string

const (
	PlatformWallapop    Platform = "Wallapop"
	PlatformVinted      Platform = "Vinted"
	PlatformMilanuncios Platform = "Milanuncios"
)

// Platforms lists the supported marketplaces in display order.
var Platforms = []Platform{PlatformWallapop, PlatformVinted, PlatformMilanuncios}

// Valid reports whether p is one of the supported marketplaces.
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePlatform matches s case-insensitively against the supported marketplaces.
func ParsePlatform(s string) (Platform, error) {
	for _, p := range Platforms {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Urgency is how quickly the seller wants the item gone.
type Urgency string

const (
	UrgencyLow    Urgency = "Low"
	UrgencyMedium Urgency = "Medium"
	UrgencyHigh   Urgency = "High"
)

// Urgencies lists the urgency levels in display order.
var Urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh}

// Valid reports whether u is a known urgency level.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// Label returns the Spanish label used in prompts and on screen.
func (u Urgency) Label() string {
	switch u {
	case UrgencyLow:
		return "Baja"
	case UrgencyMedium:
		return "Media"
	case UrgencyHigh:
		return "Alta"
	default:
		return string(u)
	}
}

// ParseUrgency accepts either the English name or the Spanish label.
func ParseUrgency(s string) (Urgency, error) {
	s = strings.TrimSpace(s)
	for _, u := range Urgencies {
		if strings.EqualFold(s, string(u)) || strings.EqualFold(s, u.Label()) {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown urgency %q", s)
}

// DefaultDelivery is the delivery option preselected for a new listing
// (in person and shipping).
const DefaultDelivery = "En mano y envío"

// Details are the sale facts the user supplies before analysis.
type Details struct {
	Platform Platform `json:"platform"`
	MinPrice string   `json:"minPrice"`
	Urgency  Urgency  `json:"urgency"`
	Delivery string   `json:"delivery"`
}

// DefaultDetails returns the details a freshly captured item starts with.
func DefaultDetails() Details {
	return Details{
		Platform: PlatformWallapop,
		MinPrice: "",
		Urgency:  UrgencyMedium,
		Delivery: DefaultDelivery,
	}
}

// MarketURL is a grounding source found during market research.
type MarketURL struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// AnalysisResult is the gateway's reply for one item.
type AnalysisResult struct {
	FullAnalysis string      `json:"fullAnalysis"`
	MarketURLs   []MarketURL `json:"marketUrls"`
}

// Clone returns a copy that shares no slices with r.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := &AnalysisResult{FullAnalysis: r.FullAnalysis}
	if r.MarketURLs != nil {
		out.MarketURLs = make([]MarketURL, len(r.MarketURLs))
		copy(out.MarketURLs, r.MarketURLs)
	}
	return out
}

// HistoryItem is a persisted snapshot of one completed listing session.
// Image fields encode as base64 strings in JSON.
type HistoryItem struct {
	ID            string         `json:"id"`
	Timestamp     int64          `json:"timestamp"`
	Image         []byte         `json:"image"`
	EnhancedImage []byte         `json:"enhancedImage"`
	Details       Details        `json:"details"`
	Analysis      AnalysisResult `json:"analysis"`
}

// UntitledLabel is shown for history entries whose analysis has no title section.
const UntitledLabel = "Sin título"

var titleLineRe = regexp.MustCompile(`📝 TÍTULO OPTIMIZADO.*\n(.*)`)

// Title returns the optimized title line from the analysis, if present.
func (h HistoryItem) Title() string {
	m := titleLineRe.FindStringSubmatch(h.Analysis.FullAnalysis)
	if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
		return UntitledLabel
	}
	return strings.TrimSpace(m[1])
}

// DisplayImage returns the enhanced image when there is one.
func (h HistoryItem) DisplayImage() []byte {
	if len(h.EnhancedImage) > 0 {
		return h.EnhancedImage
	}
	return h.Image
}

// Clone returns a deep copy of h.
func (h HistoryItem) Clone() HistoryItem {
	out := h
	out.Image = bytes.Clone(h.Image)
	out.EnhancedImage = bytes.Clone(h.EnhancedImage)
	out.Analysis = *h.Analysis.Clone()
	return out
}
