package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"league-scoring-system/models"
)

// memStore is an in-memory RecordStore with real uniqueness conflicts, used
// to exercise the protocol without a database. Reads return copies so two
// simulated devices never share row memory.
type memStore struct {
	mu      sync.Mutex
	matches map[string]*models.Match
	lineups map[string]*models.MatchLineup
	games   map[string]*models.MatchGame
}

func newMemStore() *memStore {
	return &memStore{
		matches: make(map[string]*models.Match),
		lineups: make(map[string]*models.MatchLineup),
		games:   make(map[string]*models.MatchGame),
	}
}

func (s *memStore) putMatch(m *models.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	cp := *m
	s.matches[m.ID] = &cp
}

func (s *memStore) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) UpdateMatch(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return ErrNotFound
	}
	for col, v := range fields {
		switch col {
		case "status":
			m.Status = v.(string)
		case "result":
			m.Result = v.(string)
		case "home_verified_by":
			m.HomeVerifiedBy = strPtr(v)
		case "away_verified_by":
			m.AwayVerifiedBy = strPtr(v)
		case "home_verified_at":
			m.HomeVerifiedAt = timePtr(v)
		case "away_verified_at":
			m.AwayVerifiedAt = timePtr(v)
		case "finalize_claimed_by":
			m.FinalizeClaimedBy = strPtr(v)
		case "finalize_claimed_at":
			m.FinalizeClaimedAt = timePtr(v)
		case "home_points":
			m.HomePoints = v.(float64)
		case "away_points":
			m.AwayPoints = v.(float64)
		case "completed_at":
			m.CompletedAt = timePtr(v)
		case "archived_at":
			m.ArchivedAt = timePtr(v)
		case "home_games_to_win":
			m.HomeGamesToWin = v.(int)
		case "home_games_to_tie":
			m.HomeGamesToTie = intPtr(v)
		case "home_games_to_lose":
			m.HomeGamesToLose = v.(int)
		case "away_games_to_win":
			m.AwayGamesToWin = v.(int)
		case "away_games_to_tie":
			m.AwayGamesToTie = intPtr(v)
		case "away_games_to_lose":
			m.AwayGamesToLose = v.(int)
		default:
			return fmt.Errorf("memStore: unknown match column %q", col)
		}
	}
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) ClaimFinalize(ctx context.Context, matchID, memberID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return false, ErrNotFound
	}
	if m.FinalizeClaimedBy != nil {
		return false, nil
	}
	now := time.Now().UTC()
	m.FinalizeClaimedBy = &memberID
	m.FinalizeClaimedAt = &now
	return true, nil
}

func (s *memStore) ClearFinalizeClaim(ctx context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return ErrNotFound
	}
	m.FinalizeClaimedBy = nil
	m.FinalizeClaimedAt = nil
	return nil
}

func (s *memStore) CreateLineup(ctx context.Context, lineup *models.MatchLineup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lineups {
		if l.MatchID == lineup.MatchID && l.TeamID == lineup.TeamID {
			return ErrAlreadyExists
		}
	}
	if lineup.ID == "" {
		lineup.ID = uuid.NewString()
	}
	cp := *lineup
	s.lineups[lineup.ID] = &cp
	return nil
}

func (s *memStore) GetLineup(ctx context.Context, matchID, teamID string) (*models.MatchLineup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lineups {
		if l.MatchID == matchID && l.TeamID == teamID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) UpdateLineup(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lineups[id]
	if !ok {
		return ErrNotFound
	}
	for col, v := range fields {
		switch col {
		case "locked":
			l.Locked = v.(bool)
		case "locked_at":
			l.LockedAt = timePtr(v)
		case "home_team_modifier":
			l.HomeTeamModifier = v.(int)
		case "player1_id":
			l.Player1ID = strPtr(v)
		case "player1_handicap":
			l.Player1Handicap = intPtr(v)
		case "player2_id":
			l.Player2ID = strPtr(v)
		case "player2_handicap":
			l.Player2Handicap = intPtr(v)
		case "player3_id":
			l.Player3ID = strPtr(v)
		case "player3_handicap":
			l.Player3Handicap = intPtr(v)
		case "player4_id":
			l.Player4ID = strPtr(v)
		case "player4_handicap":
			l.Player4Handicap = intPtr(v)
		case "player5_id":
			l.Player5ID = strPtr(v)
		case "player5_handicap":
			l.Player5Handicap = intPtr(v)
		default:
			return fmt.Errorf("memStore: unknown lineup column %q", col)
		}
	}
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) CreateGames(ctx context.Context, games []models.MatchGame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Single-statement semantics: a duplicate anywhere fails the whole batch.
	for _, g := range games {
		for _, existing := range s.games {
			if existing.MatchID == g.MatchID && existing.GameNumber == g.GameNumber {
				return ErrAlreadyExists
			}
		}
	}
	for i := range games {
		if games[i].ID == "" {
			games[i].ID = uuid.NewString()
		}
		cp := games[i]
		s.games[cp.ID] = &cp
	}
	return nil
}

func (s *memStore) GetGame(ctx context.Context, id string) (*models.MatchGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *memStore) UpdateGame(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return ErrNotFound
	}
	for col, v := range fields {
		switch col {
		case "winner_player_id":
			g.WinnerPlayerID = strPtr(v)
		case "winner_team_id":
			g.WinnerTeamID = strPtr(v)
		case "break_and_run":
			g.BreakAndRun = v.(bool)
		case "golden_break":
			g.GoldenBreak = v.(bool)
		case "confirmed_by_home":
			g.ConfirmedByHome = v.(bool)
		case "confirmed_by_away":
			g.ConfirmedByAway = v.(bool)
		case "confirmed_at":
			g.ConfirmedAt = timePtr(v)
		case "vacate_requested_by":
			g.VacateRequestedBy = strPtr(v)
		default:
			return fmt.Errorf("memStore: unknown game column %q", col)
		}
	}
	g.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) ListGames(ctx context.Context, matchID string) ([]models.MatchGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MatchGame
	for _, g := range s.games {
		if g.MatchID == matchID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameNumber < out[j].GameNumber })
	return out, nil
}

func strPtr(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	case *string:
		return t
	}
	panic(fmt.Sprintf("unexpected string value %v", v))
}

func intPtr(v any) *int {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return &t
	case *int:
		return t
	}
	panic(fmt.Sprintf("unexpected int value %v", v))
}

func timePtr(v any) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return &t
	case *time.Time:
		return t
	}
	panic(fmt.Sprintf("unexpected time value %v", v))
}
