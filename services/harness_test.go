package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"league-scoring-system/models"
)

const (
	testHomeTeam = "11111111-1111-1111-1111-111111111111"
	testAwayTeam = "22222222-2222-2222-2222-222222222222"
)

type harness struct {
	store      *memStore
	lineups    *LineupService
	ledger     *LedgerService
	completion *CompletionService
	matchID    string
}

func newHarness(t *testing.T, playersPerTeam int) *harness {
	t.Helper()
	store := newMemStore()
	lineups := &LineupService{Store: store, PollInterval: time.Millisecond, PollAttempts: 3}
	ledger := &LedgerService{Store: store, Lineups: lineups}
	completion := &CompletionService{
		Store:        store,
		Lineups:      lineups,
		Ledger:       ledger,
		PollInterval: time.Millisecond,
		PollAttempts: 5,
	}

	match := &models.Match{
		HomeTeamID:       testHomeTeam,
		AwayTeamID:       testAwayTeam,
		PlayersPerTeam:   playersPerTeam,
		DoubleRoundRobin: playersPerTeam == models.FormatThree,
		Status:           models.MatchStatusInProgress,
	}
	store.putMatch(match)

	return &harness{
		store:      store,
		lineups:    lineups,
		ledger:     ledger,
		completion: completion,
		matchID:    match.ID,
	}
}

func (h *harness) homePlayer(pos int) string { return "home-player-" + string(rune('0'+pos)) }
func (h *harness) awayPlayer(pos int) string { return "away-player-" + string(rune('0'+pos)) }

// lockLineups fills and locks both sides with the given per-slot handicaps.
func (h *harness) lockLineups(t *testing.T, homeHandicaps, awayHandicaps []int, homeModifier int) {
	t.Helper()
	ctx := context.Background()
	for i, hc := range homeHandicaps {
		require.NoError(t, h.lineups.AssignSlot(ctx, h.matchID, testHomeTeam, i+1, h.homePlayer(i+1), hc))
	}
	for i, hc := range awayHandicaps {
		require.NoError(t, h.lineups.AssignSlot(ctx, h.matchID, testAwayTeam, i+1, h.awayPlayer(i+1), hc))
	}
	require.NoError(t, h.lineups.Lock(ctx, h.matchID, testHomeTeam, homeModifier))
	require.NoError(t, h.lineups.Lock(ctx, h.matchID, testAwayTeam, 0))
}

// evenHandicaps returns n identical handicaps so the differential is zero.
func evenHandicaps(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = 5
	}
	return out
}

// playMainBracket scores and dual-confirms every main game, giving the home
// team the first homeWins games and the away team the rest.
func (h *harness) playMainBracket(t *testing.T, homeWins int) {
	t.Helper()
	ctx := context.Background()
	games, err := h.store.ListGames(ctx, h.matchID)
	require.NoError(t, err)
	played := 0
	for _, g := range games {
		if g.IsTiebreaker {
			continue
		}
		winner := g.HomePlayerID
		if played >= homeWins {
			winner = g.AwayPlayerID
		}
		require.NoError(t, h.ledger.ScoreGame(ctx, g.ID, SideHome, winner, false, false))
		require.NoError(t, h.ledger.ConfirmGame(ctx, g.ID, SideAway))
		played++
	}
}

// playTiebreak scores and dual-confirms the three tie-break games with the
// given per-game winners ("home"/"away").
func (h *harness) playTiebreak(t *testing.T, winners []Side) {
	t.Helper()
	ctx := context.Background()
	games, err := h.store.ListGames(ctx, h.matchID)
	require.NoError(t, err)
	i := 0
	for _, g := range games {
		if !g.IsTiebreaker {
			continue
		}
		if i >= len(winners) {
			break
		}
		winner := g.HomePlayerID
		if winners[i] == SideAway {
			winner = g.AwayPlayerID
		}
		require.NoError(t, h.ledger.ScoreGame(ctx, g.ID, SideAway, winner, false, false))
		require.NoError(t, h.ledger.ConfirmGame(ctx, g.ID, SideHome))
		i++
	}
}
