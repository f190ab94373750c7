package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"league-scoring-system/models"
)

func TestPointsThreeFormat(t *testing.T) {
	tie := 9
	th := Thresholds{GamesToWin: 10, GamesToTie: &tie, GamesToLose: 7}

	cases := []struct {
		wins   int
		points float64
	}{
		{11, 1},
		{10, 0},
		{9, 0},
		{8, -1},
		{12, 2},
		{6, -3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.points, PointsThreeFormat(tc.wins, th), "wins=%d", tc.wins)
	}
}

func TestPointsThreeFormatNoTieRow(t *testing.T) {
	th := Thresholds{GamesToWin: 11, GamesToLose: 7}
	assert.Equal(t, 1.0, PointsThreeFormat(12, th))
	assert.Equal(t, 0.0, PointsThreeFormat(11, th))
	assert.Equal(t, -1.0, PointsThreeFormat(10, th))
}

func TestPointsFiveFormatBonusJumps(t *testing.T) {
	th := Thresholds{GamesToWin: 13, GamesToLose: 11} // 70% mark = 9

	cases := []struct {
		wins   int
		points float64
	}{
		{0, 0},
		{8, 0.8},
		{9, 1.5},  // first jump
		{10, 1.6},
		{12, 1.8},
		{13, 3.0}, // second jump
		{14, 3.1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.points, PointsFiveFormat(tc.wins, th), "wins=%d", tc.wins)
	}
}

func TestTallyWinsCountsOnlyConfirmed(t *testing.T) {
	home := "team-h"
	away := "team-a"
	p := "player"
	games := []models.MatchGame{
		{WinnerTeamID: &home, WinnerPlayerID: &p, ConfirmedByHome: true, ConfirmedByAway: true},
		{WinnerTeamID: &home, WinnerPlayerID: &p, ConfirmedByHome: true, ConfirmedByAway: false}, // pending
		{WinnerTeamID: &away, WinnerPlayerID: &p, ConfirmedByHome: true, ConfirmedByAway: true},
		{}, // unscored
	}
	tally := TallyWins(games, home, away)
	assert.Equal(t, 1, tally.HomeWins)
	assert.Equal(t, 1, tally.AwayWins)
}

func TestTallySplitsMainAndTiebreak(t *testing.T) {
	home := "team-h"
	away := "team-a"
	p := "player"
	games := []models.MatchGame{
		{WinnerTeamID: &home, WinnerPlayerID: &p, ConfirmedByHome: true, ConfirmedByAway: true},
		{WinnerTeamID: &away, WinnerPlayerID: &p, ConfirmedByHome: true, ConfirmedByAway: true, IsTiebreaker: true},
	}
	assert.Equal(t, WinTally{HomeWins: 1}, TallyMainWins(games, home, away))
	assert.Equal(t, WinTally{AwayWins: 1}, TallyTiebreakWins(games, home, away))
}

func TestMatchOutcome(t *testing.T) {
	tie := 9
	th := MatchThresholds{
		Home: Thresholds{GamesToWin: 10, GamesToTie: &tie, GamesToLose: 7},
		Away: Thresholds{GamesToWin: 10, GamesToTie: &tie, GamesToLose: 7},
	}
	assert.Equal(t, models.ResultHomeWin, MatchOutcome(WinTally{HomeWins: 10, AwayWins: 8}, th))
	assert.Equal(t, models.ResultAwayWin, MatchOutcome(WinTally{HomeWins: 8, AwayWins: 10}, th))
	assert.Equal(t, models.ResultTie, MatchOutcome(WinTally{HomeWins: 9, AwayWins: 9}, th))
}
