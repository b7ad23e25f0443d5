package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/raine/vendepro/internal/listing"
	"github.com/raine/vendepro/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type gatewayMock struct {
	mock.Mock
}

func (m *gatewayMock) Analyze(ctx context.Context, image []byte, details listing.Details) (*listing.AnalysisResult, error) {
	args := m.Called(ctx, image, details)
	result, _ := args.Get(0).(*listing.AnalysisResult)
	return result, args.Error(1)
}

func (m *gatewayMock) Enhance(ctx context.Context, image []byte, instruction string) ([]byte, error) {
	args := m.Called(ctx, image, instruction)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func TestCachedGateway_HitSkipsInner(t *testing.T) {
	inner := new(gatewayMock)
	store := storage.NewMemoryStore()
	gw := NewCachedGateway(inner, store)
	ctx := context.Background()
	image := []byte("jpeg")
	details := listing.DefaultDetails()

	result := &listing.AnalysisResult{FullAnalysis: "### 📝 TÍTULO OPTIMIZADO (TEXTO PLANO)\nSilla"}
	inner.On("Analyze", ctx, image, details).Return(result, nil).Once()

	first, err := gw.Analyze(ctx, image, details)
	require.NoError(t, err)
	second, err := gw.Analyze(ctx, image, details)
	require.NoError(t, err)

	assert.Equal(t, result.FullAnalysis, first.FullAnalysis)
	assert.Equal(t, result.FullAnalysis, second.FullAnalysis)
	inner.AssertNumberOfCalls(t, "Analyze", 1)
}

func TestCachedGateway_DetailsChangeKey(t *testing.T) {
	image := []byte("jpeg")
	a := listing.DefaultDetails()
	b := listing.DefaultDetails()
	b.MinPrice = "25"
	assert.NotEqual(t, analysisCacheKey(image, a), analysisCacheKey(image, b))
	assert.Equal(t, analysisCacheKey(image, a), analysisCacheKey(image, a))
}

func TestCachedGateway_ErrorsNotCached(t *testing.T) {
	inner := new(gatewayMock)
	gw := NewCachedGateway(inner, storage.NewMemoryStore())
	ctx := context.Background()
	image := []byte("jpeg")
	details := listing.DefaultDetails()

	inner.On("Analyze", ctx, image, details).Return(nil, errors.New("quota")).Once()
	inner.On("Analyze", ctx, image, details).Return(&listing.AnalysisResult{FullAnalysis: "ok"}, nil).Once()

	_, err := gw.Analyze(ctx, image, details)
	require.Error(t, err)
	got, err := gw.Analyze(ctx, image, details)
	require.NoError(t, err)
	assert.Equal(t, "ok", got.FullAnalysis)
	inner.AssertExpectations(t)
}

func TestCachedGateway_FallbackNotCached(t *testing.T) {
	inner := new(gatewayMock)
	gw := NewCachedGateway(inner, storage.NewMemoryStore())
	ctx := context.Background()
	image := []byte("jpeg")
	details := listing.DefaultDetails()

	inner.On("Analyze", ctx, image, details).Return(&listing.AnalysisResult{FullAnalysis: FallbackAnalysis}, nil).Twice()

	_, err := gw.Analyze(ctx, image, details)
	require.NoError(t, err)
	_, err = gw.Analyze(ctx, image, details)
	require.NoError(t, err)
	inner.AssertNumberOfCalls(t, "Analyze", 2)
}

func TestCachedGateway_EnhancePassesThrough(t *testing.T) {
	inner := new(gatewayMock)
	gw := NewCachedGateway(inner, nil)
	ctx := context.Background()

	inner.On("Enhance", ctx, []byte("jpeg"), DefaultEnhanceInstruction).Return([]byte("png"), nil).Twice()

	for i := 0; i < 2; i++ {
		out, err := gw.Enhance(ctx, []byte("jpeg"), DefaultEnhanceInstruction)
		require.NoError(t, err)
		assert.Equal(t, []byte("png"), out)
	}
	inner.AssertExpectations(t)
}
