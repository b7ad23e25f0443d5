package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/raine/vendepro/internal/listing"
	"github.com/raine/vendepro/internal/storage"
	"github.com/rs/zerolog/log"
)

// CachedGateway wraps a Gateway and remembers analysis results per image
// and details. Enhancement is never cached.
type CachedGateway struct {
	inner Gateway
	store storage.SessionStore
}

// NewCachedGateway creates a caching gateway.
func NewCachedGateway(inner Gateway, store storage.SessionStore) *CachedGateway {
	return &CachedGateway{inner: inner, store: store}
}

// analysisCacheKey hashes the image together with the sale details, since
// the same photo with a different price floor yields a different listing.
func analysisCacheKey(image []byte, details listing.Details) string {
	h := sha256.New()
	// Length prefix prevents boundary collisions between image and details
	binary.Write(h, binary.LittleEndian, int64(len(image)))
	h.Write(image)
	d, _ := json.Marshal(details)
	h.Write(d)
	return hex.EncodeToString(h.Sum(nil))
}

// Analyze implements Gateway with caching.
func (c *CachedGateway) Analyze(ctx context.Context, image []byte, details listing.Details) (*listing.AnalysisResult, error) {
	key := analysisCacheKey(image, details)

	if c.store != nil {
		cached, err := c.store.GetAnalysisCache(key)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check analysis cache")
		} else if cached != nil {
			log.Debug().Str("hash", key[:16]).Msg("analysis cache hit")
			return cached, nil
		}
	}

	result, err := c.inner.Analyze(ctx, image, details)
	if err != nil {
		return nil, err
	}

	if c.store != nil && result != nil && result.FullAnalysis != FallbackAnalysis {
		if err := c.store.SetAnalysisCache(key, result); err != nil {
			log.Warn().Err(err).Msg("failed to cache analysis result")
		} else {
			log.Debug().Str("hash", key[:16]).Msg("cached analysis result")
		}
	}

	return result, nil
}

// Enhance passes straight through to the wrapped gateway.
func (c *CachedGateway) Enhance(ctx context.Context, image []byte, instruction string) ([]byte, error) {
	return c.inner.Enhance(ctx, image, instruction)
}
