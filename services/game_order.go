package services

import (
	"fmt"

	"league-scoring-system/models"
)

// GameSlot is one entry in the deterministic game order for a match: which
// roster positions meet, and who breaks. Positions are 1-based.
type GameSlot struct {
	GameNumber int    `json:"game_number"`
	HomeSlot   int    `json:"home_slot"`
	AwaySlot   int    `json:"away_slot"`
	HomeAction string `json:"home_action"`
	AwayAction string `json:"away_action"`
}

// GameOrder produces the full game sequence for a team size and round-robin
// style. It is pure and total: the same inputs always yield the same slice,
// and it is the single source of truth for which player occupies which game.
//
// Three per side, double round robin: 18 games in 6 rounds of 3. Rounds rotate
// opponents (round r pairs home slot i with away slot (i+r) mod 3); rounds 4-6
// repeat the pairings of rounds 1-3 with the breaking side swapped.
//
// Five per side, single round robin: 25 games in 5 rounds of 5, each ordered
// pair meeting once, breaker alternating by game number.
func GameOrder(playersPerTeam int, doubleRoundRobin bool) ([]GameSlot, error) {
	switch {
	case playersPerTeam == models.FormatThree && doubleRoundRobin:
		return roundRobinOrder(3, 2), nil
	case playersPerTeam == models.FormatFive && !doubleRoundRobin:
		return roundRobinOrder(5, 1), nil
	default:
		return nil, fmt.Errorf("unsupported format: %d players per team, double=%v", playersPerTeam, doubleRoundRobin)
	}
}

func roundRobinOrder(size, cycles int) []GameSlot {
	games := make([]GameSlot, 0, size*size*cycles)
	num := 1
	for cycle := 0; cycle < cycles; cycle++ {
		for round := 0; round < size; round++ {
			for table := 0; table < size; table++ {
				homeBreaks := num%2 == 1
				if cycle == 1 {
					// Second meeting of the same pairing: the breaker from the
					// first meeting (game num-size*size) is swapped.
					homeBreaks = (num-size*size)%2 == 0
				}
				g := GameSlot{
					GameNumber: num,
					HomeSlot:   table + 1,
					AwaySlot:   (table+round)%size + 1,
					HomeAction: models.ActionBreaks,
					AwayAction: models.ActionRacks,
				}
				if !homeBreaks {
					g.HomeAction = models.ActionRacks
					g.AwayAction = models.ActionBreaks
				}
				games = append(games, g)
				num++
			}
		}
	}
	return games
}

// TiebreakOrder returns the three supplementary best-of-3 games appended
// after an n-game main bracket. Slots rotate through the first three roster
// positions; home breaks the first and third game.
func TiebreakOrder(mainGames int) []GameSlot {
	games := make([]GameSlot, 0, 3)
	for i := 0; i < 3; i++ {
		g := GameSlot{
			GameNumber: mainGames + i + 1,
			HomeSlot:   i + 1,
			AwaySlot:   i + 1,
			HomeAction: models.ActionBreaks,
			AwayAction: models.ActionRacks,
		}
		if i == 1 {
			g.HomeAction = models.ActionRacks
			g.AwayAction = models.ActionBreaks
		}
		games = append(games, g)
	}
	return games
}
