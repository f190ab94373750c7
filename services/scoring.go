package services

import (
	"math"

	"league-scoring-system/models"
)

// WinTally is the per-team win/loss count over confirmed games.
type WinTally struct {
	HomeWins int `json:"home_wins"`
	AwayWins int `json:"away_wins"`
}

// TallyWins counts confirmed games per team. Games without a winner, or with
// a winner not yet agreed by both sides, do not count.
func TallyWins(games []models.MatchGame, homeTeamID, awayTeamID string) WinTally {
	var t WinTally
	for _, g := range games {
		if !g.Confirmed() || g.WinnerTeamID == nil {
			continue
		}
		switch *g.WinnerTeamID {
		case homeTeamID:
			t.HomeWins++
		case awayTeamID:
			t.AwayWins++
		}
	}
	return t
}

// TallyMainWins is TallyWins restricted to the main bracket.
func TallyMainWins(games []models.MatchGame, homeTeamID, awayTeamID string) WinTally {
	main := make([]models.MatchGame, 0, len(games))
	for _, g := range games {
		if !g.IsTiebreaker {
			main = append(main, g)
		}
	}
	return TallyWins(main, homeTeamID, awayTeamID)
}

// TallyTiebreakWins is TallyWins restricted to tie-break games.
func TallyTiebreakWins(games []models.MatchGame, homeTeamID, awayTeamID string) WinTally {
	tb := make([]models.MatchGame, 0, 3)
	for _, g := range games {
		if g.IsTiebreaker {
			tb = append(tb, g)
		}
	}
	return TallyWins(tb, homeTeamID, awayTeamID)
}

// PointsThreeFormat computes a team's match points in the three-per-side
// model: one point per win above the win threshold, zero inside the tie band,
// negative below it (measured from the tie threshold when one exists,
// otherwise from the win threshold).
func PointsThreeFormat(wins int, th Thresholds) float64 {
	if wins > th.GamesToWin {
		return float64(wins - th.GamesToWin)
	}
	if th.GamesToTie != nil {
		if wins >= *th.GamesToTie {
			return 0
		}
		return float64(wins - *th.GamesToTie)
	}
	return float64(wins - th.GamesToWin)
}

// PointsFiveFormat computes a team's match points in the five-per-side
// bonus-jump model: 0.1 per win until the 70%-of-threshold mark (rounded to
// nearest, not up), where the total jumps to 1.5 plus 0.1 per extra win, then
// jumps again to 3.0 plus 0.1 per extra win at the full threshold. The two
// discontinuities are intentional and must not be smoothed.
func PointsFiveFormat(wins int, th Thresholds) float64 {
	mark := int(math.Round(0.7 * float64(th.GamesToWin)))
	switch {
	case wins >= th.GamesToWin:
		return round1(3.0 + 0.1*float64(wins-th.GamesToWin))
	case wins >= mark:
		return round1(1.5 + 0.1*float64(wins-mark))
	default:
		return round1(0.1 * float64(wins))
	}
}

// Points dispatches on team format.
func Points(playersPerTeam, wins int, th Thresholds) float64 {
	if playersPerTeam == models.FormatFive {
		return PointsFiveFormat(wins, th)
	}
	return PointsThreeFormat(wins, th)
}

// MatchOutcome derives the result tag for a finished bracket from one side's
// thresholds and win counts. Returns "" while neither win nor loss nor tie is
// reached (should not happen once every slot is confirmed).
func MatchOutcome(tally WinTally, th MatchThresholds) string {
	switch {
	case tally.HomeWins >= th.Home.GamesToWin:
		return models.ResultHomeWin
	case tally.AwayWins >= th.Away.GamesToWin:
		return models.ResultAwayWin
	case th.Home.GamesToTie != nil && tally.HomeWins >= *th.Home.GamesToTie:
		return models.ResultTie
	case tally.HomeWins <= th.Home.GamesToLose:
		return models.ResultAwayWin
	case tally.AwayWins <= th.Away.GamesToLose:
		return models.ResultHomeWin
	default:
		return ""
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
