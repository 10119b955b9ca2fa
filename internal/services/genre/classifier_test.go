package genre

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vibecheck/api/internal/services/completion"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Complete(ctx context.Context, req completion.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) Name() string { return "mock" }

var testGenres = []string{"pop", "rock", "hip-hop", "electronic", "jazz", "classical",
	"country", "r&b", "reggae", "blues", "folk", "indie"}

func newTestClassifier(answer string, err error) (*Classifier, *mockProvider) {
	p := &mockProvider{}
	p.On("Complete", mock.Anything, mock.Anything).Return(answer, err)
	return NewClassifier(p, NewAllowList(testGenres), DefaultSampling), p
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		answer     string
		wantStatus Status
		wantGenre  Genre
	}{
		{"exact", "pop", StatusMatched, "pop"},
		{"padded and capitalised", " Pop. ", StatusMatched, "pop"},
		{"first of a list", "pop, rock", StatusMatched, "pop"},
		{"symbols survive", "R&B", StatusMatched, "r&b"},
		{"extra words miss", "Pop music\n", StatusMiss, ""},
		{"sentinel", "none", StatusMiss, ""},
		{"empty", "", StatusMiss, ""},
		{"not allow-listed", "polka", StatusMiss, ""},
		{"near miss is not fuzzy matched", "hiphop", StatusMiss, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClassifier(tt.answer, nil)

			out := c.Classify(context.Background(), "something")
			assert.Equal(t, tt.wantStatus, out.Status)

			g, ok := out.Genre()
			assert.Equal(t, tt.wantStatus == StatusMatched, ok)
			assert.Equal(t, tt.wantGenre, g)
		})
	}
}

func TestClassify_UpstreamError(t *testing.T) {
	upstream := errors.New("groq API error (status 503): down")
	c, _ := newTestClassifier("", upstream)

	out := c.Classify(context.Background(), "sad rainy day")

	assert.Equal(t, StatusUpstreamError, out.Status)
	assert.ErrorIs(t, out.Err, upstream)
	_, ok := out.Genre()
	assert.False(t, ok)
}

func TestClassify_RequestShape(t *testing.T) {
	c, p := newTestClassifier("jazz", nil)

	c.Classify(context.Background(), "smoky bar at 2am")

	require.Len(t, p.Calls, 1)
	req := p.Calls[0].Arguments.Get(1).(completion.Request)
	assert.Equal(t, 0.2, req.Temperature)
	assert.Equal(t, 8, req.MaxTokens)
	assert.Equal(t, 1.0, req.TopP)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.True(t, strings.Contains(req.Messages[0].Content, "blues, classical, country"))
	assert.Contains(t, req.Messages[0].Content, "smoky bar at 2am")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "matched", StatusMatched.String())
	assert.Equal(t, "miss", StatusMiss.String())
	assert.Equal(t, "upstream_error", StatusUpstreamError.String())
}
