package models

import (
	"time"
)

// Actions a player takes to open a game
const (
	ActionBreaks = "breaks"
	ActionRacks  = "racks"
)

// Confirmation protocol states, derived from a game row's fields
const (
	GameUnscored        = "unscored"
	GamePending         = "pending"
	GameConfirmed       = "confirmed"
	GameVacateRequested = "vacate_requested"
)

// MatchGame is one ledger entry: a single rack within a match. The unique
// index on (match_id, game_number) is what makes concurrent creation by both
// team devices safe — the loser of the race gets a duplicate-key error and
// treats it as success.
type MatchGame struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	MatchID    string `gorm:"index:idx_game_match_number,unique;not null" json:"match_id"`
	GameNumber int    `gorm:"index:idx_game_match_number,unique;not null" json:"game_number"`

	GameType string `gorm:"type:varchar(16);default:'eight_ball'" json:"game_type"`

	HomePlayerID string `gorm:"type:uuid;not null" json:"home_player_id"`
	AwayPlayerID string `gorm:"type:uuid;not null" json:"away_player_id"`
	HomePosition int    `json:"home_position"`
	AwayPosition int    `json:"away_position"`
	HomeAction   string `gorm:"type:varchar(8)" json:"home_action"` // breaks or racks
	AwayAction   string `gorm:"type:varchar(8)" json:"away_action"`

	WinnerPlayerID *string `gorm:"type:uuid" json:"winner_player_id,omitempty"`
	WinnerTeamID   *string `gorm:"type:uuid" json:"winner_team_id,omitempty"`

	// Special results. Never both true on one row; the scoring call rejects
	// such input before writing.
	BreakAndRun bool `gorm:"default:false" json:"break_and_run"`
	GoldenBreak bool `gorm:"default:false" json:"golden_break"`

	// Each side only ever sets its own flag.
	ConfirmedByHome bool       `gorm:"default:false" json:"confirmed_by_home"`
	ConfirmedByAway bool       `gorm:"default:false" json:"confirmed_by_away"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`

	// Set while a vacate of a confirmed result is awaiting the opponent's
	// answer; distinguishes that state from an ordinary pending score.
	VacateRequestedBy *string `gorm:"type:uuid" json:"vacate_requested_by,omitempty"`

	IsTiebreaker bool `gorm:"default:false" json:"is_tiebreaker"`

	Timestamps
}

// Confirmed reports whether both sides have agreed on this game's winner.
func (g *MatchGame) Confirmed() bool {
	return g.ConfirmedByHome && g.ConfirmedByAway
}

// State derives the confirmation protocol state from the row's fields.
func (g *MatchGame) State() string {
	switch {
	case g.WinnerPlayerID == nil:
		return GameUnscored
	case g.Confirmed():
		return GameConfirmed
	case g.VacateRequestedBy != nil:
		return GameVacateRequested
	default:
		return GamePending
	}
}
