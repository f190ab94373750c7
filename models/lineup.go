package models

import (
	"time"
)

// MatchLineup is one team's roster assignment for one match. Slots 4 and 5
// are used only in the five-per-side format. Once locked, slot assignments
// and handicaps are frozen even if a player's rolling handicap later changes.
type MatchLineup struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	MatchID string `gorm:"index:idx_lineup_match_team,unique;not null" json:"match_id"`
	TeamID  string `gorm:"index:idx_lineup_match_team,unique;not null" json:"team_id"`

	Player1ID       *string `gorm:"type:uuid" json:"player1_id,omitempty"`
	Player1Handicap *int    `json:"player1_handicap,omitempty"`
	Player2ID       *string `gorm:"type:uuid" json:"player2_id,omitempty"`
	Player2Handicap *int    `json:"player2_handicap,omitempty"`
	Player3ID       *string `gorm:"type:uuid" json:"player3_id,omitempty"`
	Player3Handicap *int    `json:"player3_handicap,omitempty"`
	Player4ID       *string `gorm:"type:uuid" json:"player4_id,omitempty"`
	Player4Handicap *int    `json:"player4_handicap,omitempty"`
	Player5ID       *string `gorm:"type:uuid" json:"player5_id,omitempty"`
	Player5Handicap *int    `json:"player5_handicap,omitempty"`

	// HomeTeamModifier is a standings-derived adjustment applied to the home
	// side's aggregate only. It is ignored on away lineups.
	HomeTeamModifier int `gorm:"default:0" json:"home_team_modifier"`

	Locked   bool       `gorm:"default:false" json:"locked"`
	LockedAt *time.Time `json:"locked_at,omitempty"`

	Timestamps
}

// PlayerAt returns the player id and handicap for a 1-based slot position.
func (l *MatchLineup) PlayerAt(position int) (*string, *int) {
	switch position {
	case 1:
		return l.Player1ID, l.Player1Handicap
	case 2:
		return l.Player2ID, l.Player2Handicap
	case 3:
		return l.Player3ID, l.Player3Handicap
	case 4:
		return l.Player4ID, l.Player4Handicap
	case 5:
		return l.Player5ID, l.Player5Handicap
	}
	return nil, nil
}

// AggregateHandicap sums the handicaps of the first n filled slots. The
// home-team modifier is applied by the threshold resolver, not here.
func (l *MatchLineup) AggregateHandicap(playersPerTeam int) int {
	total := 0
	for pos := 1; pos <= playersPerTeam; pos++ {
		if _, hc := l.PlayerAt(pos); hc != nil {
			total += *hc
		}
	}
	return total
}
