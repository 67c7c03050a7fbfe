package analysiscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/coverline/claimlens/internal/core/domain"
	"github.com/coverline/claimlens/internal/core/ports"
)

// CachingExtractor memoizes successful document analyses. Re-analyzing a
// claim whose documents have not changed costs zero model tokens; errors
// are never cached.
type CachingExtractor struct {
	inner ports.FindingExtractor
	cache *gocache.Cache
	model string
}

func New(inner ports.FindingExtractor, model string, ttl time.Duration) *CachingExtractor {
	return &CachingExtractor{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
		model: model,
	}
}

// Key hashes the model name, document type and full document text. Any
// change to the text or a model upgrade produces a fresh entry.
func Key(model string, docType domain.DocType, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + string(docType) + "\x00" + text))
	return "claimlens:v1:" + hex.EncodeToString(sum[:])
}

func (c *CachingExtractor) AnalyzeDocument(ctx context.Context, docType domain.DocType, text string) (domain.DocumentAnalysis, error) {
	key := Key(c.model, docType, text)
	if cached, found := c.cache.Get(key); found {
		slog.Debug("analysis_cache_hit", "doc_type", docType)
		return cached.(domain.DocumentAnalysis), nil
	}

	analysis, err := c.inner.AnalyzeDocument(ctx, docType, text)
	if err != nil {
		return domain.DocumentAnalysis{}, err
	}

	c.cache.SetDefault(key, analysis)
	return analysis, nil
}
