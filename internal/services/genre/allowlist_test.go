package genre

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"pop", "pop"},
		{"  Jazz  ", "jazz"},
		{"Pop.", "pop"},
		{"rock...", "rock"},
		{"pop, rock", "pop"},
		{"Pop music\n", "pop music"},
		{"hip-hop\nbecause the prompt...", "hip-hop"},
		{"R&B", "r&b"},
		{"none", "none"},
		{"", ""},
		{" . ", ""},
		{"indie  .", "indie"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "Normalize must be idempotent")
		})
	}
}

func TestAllowList(t *testing.T) {
	a := NewAllowList([]string{"Rock", "pop", " jazz ", "pop", ""})

	assert.Equal(t, 3, a.Len())
	assert.True(t, a.Contains("rock"))
	assert.True(t, a.Contains("jazz"))
	assert.False(t, a.Contains("Rock"), "membership is exact after lower-casing on load")
	assert.False(t, a.Contains("jaz"))
	assert.Equal(t, []string{"jazz", "pop", "rock"}, a.Sorted())
}

func TestAllowList_SortedIsACopy(t *testing.T) {
	a := NewAllowList([]string{"pop", "rock"})

	sorted := a.Sorted()
	sorted[0] = "polka"

	assert.Equal(t, []string{"pop", "rock"}, a.Sorted())
	assert.False(t, a.Contains("polka"))
}
