package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveThresholdsEvenMatchThree(t *testing.T) {
	th, err := ResolveThresholds(3, 15, 0, 15)
	require.NoError(t, err)

	assert.Equal(t, 10, th.Home.GamesToWin)
	require.NotNil(t, th.Home.GamesToTie)
	assert.Equal(t, 9, *th.Home.GamesToTie)
	assert.Equal(t, th.Home, th.Away, "zero differential is symmetric")
}

func TestResolveThresholdsEvenMatchFive(t *testing.T) {
	th, err := ResolveThresholds(5, 25, 0, 25)
	require.NoError(t, err)
	assert.Equal(t, 13, th.Home.GamesToWin)
	require.NotNil(t, th.Home.GamesToTie)
	assert.Equal(t, 12, *th.Home.GamesToTie)
}

func TestResolveThresholdsInvariant(t *testing.T) {
	// win + opposing lose == totalGames - 1 must hold for every differential,
	// including past the clamped edge of the table.
	cases := []struct {
		players    int
		totalGames int
	}{
		{3, 18},
		{5, 25},
	}
	for _, tc := range cases {
		for diff := -20; diff <= 20; diff++ {
			th, err := ResolveThresholds(tc.players, 20+diff, 0, 20)
			require.NoError(t, err)
			assert.Equal(t, tc.totalGames-1, th.Home.GamesToWin+th.Away.GamesToLose,
				"players=%d diff=%d", tc.players, diff)
			assert.Equal(t, tc.totalGames-1, th.Away.GamesToWin+th.Home.GamesToLose,
				"players=%d diff=%d", tc.players, diff)
		}
	}
}

func TestResolveThresholdsTieOnlyForEvenDifferentials(t *testing.T) {
	for diff := -12; diff <= 12; diff++ {
		th, err := ResolveThresholds(3, 20+diff, 0, 20)
		require.NoError(t, err)
		if diff%2 == 0 {
			assert.NotNil(t, th.Home.GamesToTie, "diff=%d", diff)
			assert.NotNil(t, th.Away.GamesToTie, "diff=%d", diff)
		} else {
			assert.Nil(t, th.Home.GamesToTie, "diff=%d", diff)
			assert.Nil(t, th.Away.GamesToTie, "diff=%d", diff)
		}
	}
}

func TestResolveThresholdsAdvantageRaisesTarget(t *testing.T) {
	th, err := ResolveThresholds(3, 24, 0, 18)
	require.NoError(t, err)
	assert.Greater(t, th.Home.GamesToWin, th.Away.GamesToWin,
		"the stronger side needs more games")

	// Mirrored differential mirrors the table.
	rev, err := ResolveThresholds(3, 18, 0, 24)
	require.NoError(t, err)
	assert.Equal(t, th.Home, rev.Away)
	assert.Equal(t, th.Away, rev.Home)
}

func TestResolveThresholdsHomeModifierCounts(t *testing.T) {
	base, err := ResolveThresholds(3, 18, 0, 18)
	require.NoError(t, err)
	bumped, err := ResolveThresholds(3, 18, 4, 18)
	require.NoError(t, err)
	assert.NotEqual(t, base.Home.GamesToWin, bumped.Home.GamesToWin,
		"the standings modifier shifts the differential")
}

func TestResolveThresholdsClampsAtTableEdge(t *testing.T) {
	edge, err := ResolveThresholds(3, 20+maxDifferential, 0, 20)
	require.NoError(t, err)
	beyond, err := ResolveThresholds(3, 20+maxDifferential+5, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, edge, beyond)
}

func TestResolveThresholdsUnknownFormat(t *testing.T) {
	_, err := ResolveThresholds(4, 10, 0, 10)
	assert.Error(t, err)
}

func TestTiebreakThresholdsFixed(t *testing.T) {
	th := TiebreakThresholds()
	assert.Equal(t, 2, th.Home.GamesToWin)
	assert.Nil(t, th.Home.GamesToTie)
	assert.Equal(t, 1, th.Home.GamesToLose)
	assert.Equal(t, th.Home, th.Away)
}
