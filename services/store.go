package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"league-scoring-system/models"
)

// RecordStore is the scoring core's only contract with the shared record
// store: point reads and partial writes by id, insert with uniqueness-conflict
// detection, and set reads. Every write is a single-record last-write-wins
// update; callers must never write fields they do not own. Inserts that hit a
// uniqueness violation return ErrAlreadyExists, which callers treat as
// "already created, continue".
type RecordStore interface {
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	UpdateMatch(ctx context.Context, id string, fields map[string]any) error
	// ClaimFinalize atomically sets the finalize claim if and only if no
	// claim is present. Reports whether this caller won the claim.
	ClaimFinalize(ctx context.Context, matchID, memberID string) (bool, error)
	ClearFinalizeClaim(ctx context.Context, matchID string) error

	CreateLineup(ctx context.Context, lineup *models.MatchLineup) error
	GetLineup(ctx context.Context, matchID, teamID string) (*models.MatchLineup, error)
	UpdateLineup(ctx context.Context, id string, fields map[string]any) error

	CreateGames(ctx context.Context, games []models.MatchGame) error
	GetGame(ctx context.Context, id string) (*models.MatchGame, error)
	UpdateGame(ctx context.Context, id string, fields map[string]any) error
	ListGames(ctx context.Context, matchID string) ([]models.MatchGame, error)
}

// gormStore is the production RecordStore over Postgres. It relies on the
// gorm TranslateError option so duplicate-key violations surface as
// gorm.ErrDuplicatedKey.
type gormStore struct {
	db *gorm.DB
}

// NewStore wraps a gorm connection in the RecordStore contract.
func NewStore(db *gorm.DB) RecordStore {
	return &gormStore{db: db}
}

func (s *gormStore) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	var m models.Match
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *gormStore) UpdateMatch(ctx context.Context, id string, fields map[string]any) error {
	return translate(s.db.WithContext(ctx).Model(&models.Match{}).Where("id = ?", id).Updates(fields).Error)
}

func (s *gormStore) ClaimFinalize(ctx context.Context, matchID, memberID string) (bool, error) {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Match{}).
		Where("id = ? AND finalize_claimed_by IS NULL", matchID).
		Updates(map[string]any{
			"finalize_claimed_by": memberID,
			"finalize_claimed_at": now,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) ClearFinalizeClaim(ctx context.Context, matchID string) error {
	return translate(s.db.WithContext(ctx).Model(&models.Match{}).Where("id = ?", matchID).
		Updates(map[string]any{
			"finalize_claimed_by": nil,
			"finalize_claimed_at": nil,
		}).Error)
}

func (s *gormStore) CreateLineup(ctx context.Context, lineup *models.MatchLineup) error {
	return translate(s.db.WithContext(ctx).Create(lineup).Error)
}

func (s *gormStore) GetLineup(ctx context.Context, matchID, teamID string) (*models.MatchLineup, error) {
	var l models.MatchLineup
	if err := s.db.WithContext(ctx).First(&l, "match_id = ? AND team_id = ?", matchID, teamID).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (s *gormStore) UpdateLineup(ctx context.Context, id string, fields map[string]any) error {
	return translate(s.db.WithContext(ctx).Model(&models.MatchLineup{}).Where("id = ?", id).Updates(fields).Error)
}

func (s *gormStore) CreateGames(ctx context.Context, games []models.MatchGame) error {
	return translate(s.db.WithContext(ctx).Create(&games).Error)
}

func (s *gormStore) GetGame(ctx context.Context, id string) (*models.MatchGame, error) {
	var g models.MatchGame
	if err := s.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

func (s *gormStore) UpdateGame(ctx context.Context, id string, fields map[string]any) error {
	return translate(s.db.WithContext(ctx).Model(&models.MatchGame{}).Where("id = ?", id).Updates(fields).Error)
}

func (s *gormStore) ListGames(ctx context.Context, matchID string) ([]models.MatchGame, error) {
	var games []models.MatchGame
	if err := s.db.WithContext(ctx).Where("match_id = ?", matchID).Order("game_number ASC").Find(&games).Error; err != nil {
		return nil, translate(err)
	}
	return games, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrAlreadyExists
	default:
		return err
	}
}
