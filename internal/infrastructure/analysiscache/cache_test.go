package analysiscache

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/coverline/claimlens/internal/core/domain"
)

type extractorFake struct {
	calls    int
	analysis domain.DocumentAnalysis
	err      error
}

func (f *extractorFake) AnalyzeDocument(_ context.Context, docType domain.DocType, _ string) (domain.DocumentAnalysis, error) {
	f.calls++
	if f.err != nil {
		return domain.DocumentAnalysis{}, f.err
	}
	out := f.analysis
	out.DocType = docType
	return out, nil
}

func TestAnalyzeDocumentServesRepeatsFromCache(t *testing.T) {
	finding, err := domain.NewFinding(domain.CategoryWearAndTear, "inspection", "worn tires")
	if err != nil {
		t.Fatalf("NewFinding() error = %v", err)
	}
	inner := &extractorFake{analysis: domain.DocumentAnalysis{
		Findings:    []domain.Finding{finding},
		Confidence:  0.9,
		KeyFindings: []string{"tires below legal tread depth"},
		TokensUsed:  120,
	}}
	cached := New(inner, "gpt-4", time.Minute)

	first, err := cached.AnalyzeDocument(context.Background(), domain.DocTypeInspection, "inspection text")
	if err != nil {
		t.Fatalf("first call error = %v", err)
	}
	second, err := cached.AnalyzeDocument(context.Background(), domain.DocTypeInspection, "inspection text")
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}

	if inner.calls != 1 {
		t.Fatalf("expected one upstream analysis, got %d", inner.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached analysis differs: %+v vs %+v", first, second)
	}
}

func TestAnalyzeDocumentMissesOnChangedText(t *testing.T) {
	inner := &extractorFake{analysis: domain.DocumentAnalysis{Confidence: 0.8, KeyFindings: []string{}}}
	cached := New(inner, "gpt-4", time.Minute)

	if _, err := cached.AnalyzeDocument(context.Background(), domain.DocTypeContract, "version one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cached.AnalyzeDocument(context.Background(), domain.DocTypeContract, "version two"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.calls != 2 {
		t.Fatalf("expected both texts analyzed, got %d calls", inner.calls)
	}
}

func TestAnalyzeDocumentDoesNotCacheErrors(t *testing.T) {
	inner := &extractorFake{err: errors.New("model unavailable")}
	cached := New(inner, "gpt-4", time.Minute)

	if _, err := cached.AnalyzeDocument(context.Background(), domain.DocTypeContract, "text"); err == nil {
		t.Fatal("expected error")
	}

	inner.err = nil
	inner.analysis = domain.DocumentAnalysis{Confidence: 0.7, KeyFindings: []string{}}
	if _, err := cached.AnalyzeDocument(context.Background(), domain.DocTypeContract, "text"); err != nil {
		t.Fatalf("expected retry to reach upstream, got %v", err)
	}

	if inner.calls != 2 {
		t.Fatalf("expected failed call to stay uncached, got %d calls", inner.calls)
	}
}

func TestKeySeparatesModelDocTypeAndText(t *testing.T) {
	base := Key("gpt-4", domain.DocTypeContract, "text")

	if !strings.HasPrefix(base, "claimlens:v1:") {
		t.Fatalf("unexpected key prefix: %s", base)
	}
	if base != Key("gpt-4", domain.DocTypeContract, "text") {
		t.Fatal("key is not stable for identical input")
	}
	if base == Key("gpt-4o", domain.DocTypeContract, "text") {
		t.Fatal("key ignores model")
	}
	if base == Key("gpt-4", domain.DocTypeHistory, "text") {
		t.Fatal("key ignores document type")
	}
	if base == Key("gpt-4", domain.DocTypeContract, "other text") {
		t.Fatal("key ignores text")
	}
}
