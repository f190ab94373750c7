package models

import (
	"time"
)

// Match lifecycle statuses
const (
	MatchStatusInProgress = "in_progress"
	MatchStatusCompleted  = "completed"
)

// Match results
const (
	ResultHomeWin = "home_win"
	ResultAwayWin = "away_win"
	ResultTie     = "tie"
)

// Team formats (players per side)
const (
	FormatThree = 3
	FormatFive  = 5
)

// Match is one head-to-head team match. Both team devices score against the
// same row; each side only ever writes its own verification column.
type Match struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	LeagueID   string `gorm:"index" json:"league_id"`
	HomeTeamID string `gorm:"index;not null" json:"home_team_id"`
	AwayTeamID string `gorm:"index;not null" json:"away_team_id"`

	PlayersPerTeam   int  `gorm:"not null;default:3" json:"players_per_team"`
	DoubleRoundRobin bool `gorm:"not null;default:true" json:"double_round_robin"`

	Status string `gorm:"type:varchar(16);default:'in_progress'" json:"status"`
	Result string `gorm:"type:varchar(16)" json:"result,omitempty"` // home_win / away_win / tie, empty until finalized

	// Verification markers. Each holds the member id of the verifying
	// participant; a side writes only its own column, never the opponent's.
	HomeVerifiedBy *string    `gorm:"type:uuid" json:"home_verified_by,omitempty"`
	AwayVerifiedBy *string    `gorm:"type:uuid" json:"away_verified_by,omitempty"`
	HomeVerifiedAt *time.Time `json:"home_verified_at,omitempty"`
	AwayVerifiedAt *time.Time `json:"away_verified_at,omitempty"`

	// Finalization claim. Set via conditional update (only when NULL) so that
	// of two concurrent verifiers exactly one performs finalize side effects.
	FinalizeClaimedBy *string    `gorm:"type:uuid" json:"finalize_claimed_by,omitempty"`
	FinalizeClaimedAt *time.Time `json:"finalize_claimed_at,omitempty"`

	// Games-needed targets, derived once from the two locked lineups when the
	// ledger is created and immutable for the life of the match (tie-break
	// rounds use their own fixed set). Zero GamesToWin means not yet derived.
	HomeGamesToWin  int  `gorm:"default:0" json:"home_games_to_win"`
	HomeGamesToTie  *int `json:"home_games_to_tie,omitempty"`
	HomeGamesToLose int  `gorm:"default:0" json:"home_games_to_lose"`
	AwayGamesToWin  int  `gorm:"default:0" json:"away_games_to_win"`
	AwayGamesToTie  *int `json:"away_games_to_tie,omitempty"`
	AwayGamesToLose int  `gorm:"default:0" json:"away_games_to_lose"`

	HomePoints float64 `gorm:"default:0" json:"home_points"`
	AwayPoints float64 `gorm:"default:0" json:"away_points"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ArchivedAt  *time.Time `gorm:"index" json:"archived_at,omitempty"` // scoresheet uploaded to R2

	Timestamps
}

// Timestamps is embedded in every persisted model.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
