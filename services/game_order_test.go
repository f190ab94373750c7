package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"league-scoring-system/models"
)

func TestGameOrderThreeDoubleRoundRobin(t *testing.T) {
	games, err := GameOrder(3, true)
	require.NoError(t, err)
	require.Len(t, games, 18)

	type pair struct{ home, away int }
	meetings := make(map[pair][]GameSlot)
	for i, g := range games {
		assert.Equal(t, i+1, g.GameNumber, "game numbers are consecutive from 1")
		assert.GreaterOrEqual(t, g.HomeSlot, 1)
		assert.LessOrEqual(t, g.HomeSlot, 3)
		assert.GreaterOrEqual(t, g.AwaySlot, 1)
		assert.LessOrEqual(t, g.AwaySlot, 3)
		requireOneBreaker(t, g)
		meetings[pair{g.HomeSlot, g.AwaySlot}] = append(meetings[pair{g.HomeSlot, g.AwaySlot}], g)
	}

	require.Len(t, meetings, 9, "every ordered slot pair appears")
	for p, ms := range meetings {
		require.Len(t, ms, 2, "pair %v meets exactly twice", p)
		assert.NotEqual(t, ms[0].HomeAction, ms[1].HomeAction,
			"pair %v has the breaker swapped between its two meetings", p)
	}
}

func TestGameOrderThreeRoundsRunInParallel(t *testing.T) {
	games, err := GameOrder(3, true)
	require.NoError(t, err)

	// Each consecutive group of three games is one round: all three home
	// slots and all three away slots appear once.
	for round := 0; round < 6; round++ {
		homeSeen := map[int]bool{}
		awaySeen := map[int]bool{}
		for table := 0; table < 3; table++ {
			g := games[round*3+table]
			homeSeen[g.HomeSlot] = true
			awaySeen[g.AwaySlot] = true
		}
		assert.Len(t, homeSeen, 3, "round %d uses every home slot", round+1)
		assert.Len(t, awaySeen, 3, "round %d uses every away slot", round+1)
	}
}

func TestGameOrderFiveSingleRoundRobin(t *testing.T) {
	games, err := GameOrder(5, false)
	require.NoError(t, err)
	require.Len(t, games, 25)

	type pair struct{ home, away int }
	seen := make(map[pair]int)
	for _, g := range games {
		requireOneBreaker(t, g)
		seen[pair{g.HomeSlot, g.AwaySlot}]++
	}
	require.Len(t, seen, 25, "every ordered slot pair appears")
	for p, n := range seen {
		assert.Equal(t, 1, n, "pair %v meets exactly once", p)
	}
}

func TestGameOrderDeterministic(t *testing.T) {
	a, err := GameOrder(3, true)
	require.NoError(t, err)
	b, err := GameOrder(3, true)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGameOrderUnsupportedFormat(t *testing.T) {
	_, err := GameOrder(4, true)
	assert.Error(t, err)
	_, err = GameOrder(5, true)
	assert.Error(t, err)
	_, err = GameOrder(3, false)
	assert.Error(t, err)
}

func TestTiebreakOrder(t *testing.T) {
	games := TiebreakOrder(18)
	require.Len(t, games, 3)
	for i, g := range games {
		assert.Equal(t, 19+i, g.GameNumber, "tie-break games numbered after the main bracket")
		requireOneBreaker(t, g)
	}
}

func requireOneBreaker(t *testing.T, g GameSlot) {
	t.Helper()
	actions := map[string]bool{g.HomeAction: true, g.AwayAction: true}
	require.True(t, actions[models.ActionBreaks] && actions[models.ActionRacks],
		"game %d: exactly one side breaks", g.GameNumber)
}
