package fold_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/shelf/internal/fold"
)

func TestEqual(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want bool
	}{
		{"Cafe", "café", true},
		{"CAFÉ", "cafe", true},
		{"Ångström", "angstrom", true},
		{"naïve", "NAIVE", true},
		{"cafe ", "café", false},
		{"cafe", "coffee", false},
	}
	for _, tc := range cases {
		t.Run(tc.a+"|"+tc.b, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, fold.Equal(tc.a, tc.b))
		})
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	require.True(t, fold.Contains("Crème brûlée recipe", "BRULEE"))
	require.True(t, fold.Contains("anything", ""))
	require.False(t, fold.Contains("tarte tatin", "brulee"))
}
