package completion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
	name string
}

func (m *mockProvider) Complete(ctx context.Context, req Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) Name() string { return m.name }

func TestFallbackProvider_PrimarySucceeds(t *testing.T) {
	primary := &mockProvider{name: "groq"}
	secondary := &mockProvider{name: "openai"}
	primary.On("Complete", mock.Anything, mock.Anything).Return("rock", nil)

	f := NewFallbackProvider(primary, secondary)
	out, err := f.Complete(context.Background(), Request{})

	require.NoError(t, err)
	assert.Equal(t, "rock", out)
	secondary.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestFallbackProvider_RetryableFallsBack(t *testing.T) {
	primary := &mockProvider{name: "groq"}
	secondary := &mockProvider{name: "openai"}
	primary.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("groq API error (status 429): slow down"))
	secondary.On("Complete", mock.Anything, mock.MatchedBy(func(r Request) bool { return r.Model == "" })).Return("jazz", nil)

	f := NewFallbackProvider(primary, secondary)
	out, err := f.Complete(context.Background(), Request{Model: "llama-3.1-8b-instant"})

	require.NoError(t, err)
	assert.Equal(t, "jazz", out)
	secondary.AssertExpectations(t)
}

func TestFallbackProvider_NonRetryableReturnsError(t *testing.T) {
	primary := &mockProvider{name: "groq"}
	secondary := &mockProvider{name: "openai"}
	origErr := errors.New("groq API error (status 401): bad key")
	primary.On("Complete", mock.Anything, mock.Anything).Return("", origErr)

	f := NewFallbackProvider(primary, secondary)
	_, err := f.Complete(context.Background(), Request{})

	assert.Equal(t, origErr, err)
	secondary.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestFallbackProvider_BothFail(t *testing.T) {
	primary := &mockProvider{name: "groq"}
	secondary := &mockProvider{name: "openai"}
	primary.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("status 503"))
	secondary.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("status 500"))

	f := NewFallbackProvider(primary, secondary)
	_, err := f.Complete(context.Background(), Request{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "both completion providers failed")
	assert.Equal(t, "groq+openai", f.Name())
}
