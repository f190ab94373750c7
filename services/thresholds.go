package services

import (
	"fmt"

	"league-scoring-system/models"
)

// Thresholds is one side's games-needed targets for a match, derived once
// from the two locked lineups and immutable for the life of the match.
// GamesToTie is nil when the handicap differential admits no tied outcome.
type Thresholds struct {
	GamesToWin  int  `json:"games_to_win"`
	GamesToTie  *int `json:"games_to_tie,omitempty"`
	GamesToLose int  `json:"games_to_lose"`
}

// MatchThresholds pairs both sides' targets.
type MatchThresholds struct {
	Home Thresholds `json:"home"`
	Away Thresholds `json:"away"`
}

// TiebreakThresholds is the fixed best-of-3 target set used for every
// tie-break round regardless of the main-match table.
func TiebreakThresholds() MatchThresholds {
	side := Thresholds{GamesToWin: 2, GamesToLose: 1}
	return MatchThresholds{Home: side, Away: side}
}

// Differential spans covered by the lookup tables. Differentials beyond the
// edge are clamped to the edge row.
const maxDifferential = 12

// ResolveThresholds translates the signed handicap differential
// (home aggregate + home modifier − away aggregate) into both sides' targets.
// The table is exact: rows satisfy win + opposing lose == totalGames − 1, and
// a tie row exists only for even-magnitude differentials. Off-by-one errors
// here change who wins a real match, so the rows are spelled out rather than
// computed from a formula at the call site.
func ResolveThresholds(playersPerTeam, homeAggregate, homeModifier, awayAggregate int) (MatchThresholds, error) {
	var totalGames, baseWin int
	switch playersPerTeam {
	case models.FormatThree:
		totalGames, baseWin = 18, 10
	case models.FormatFive:
		totalGames, baseWin = 25, 13
	default:
		return MatchThresholds{}, fmt.Errorf("no threshold table for %d players per team", playersPerTeam)
	}

	diff := homeAggregate + homeModifier - awayAggregate
	clamped := diff
	if clamped > maxDifferential {
		clamped = maxDifferential
	} else if clamped < -maxDifferential {
		clamped = -maxDifferential
	}

	mag := clamped
	if mag < 0 {
		mag = -mag
	}

	// The stronger side gives up one extra required game per two points of
	// differential; the weaker side's requirement drops by the same step.
	shift := (mag + 1) / 2
	strongerWin := baseWin + shift
	weakerWin := baseWin - shift

	stronger := Thresholds{GamesToWin: strongerWin, GamesToLose: totalGames - 1 - weakerWin}
	weaker := Thresholds{GamesToWin: weakerWin, GamesToLose: totalGames - 1 - strongerWin}
	if mag%2 == 0 {
		strongerTie := strongerWin - 1
		weakerTie := weakerWin - 1
		stronger.GamesToTie = &strongerTie
		weaker.GamesToTie = &weakerTie
	}

	if clamped >= 0 {
		return MatchThresholds{Home: stronger, Away: weaker}, nil
	}
	return MatchThresholds{Home: weaker, Away: stronger}, nil
}
