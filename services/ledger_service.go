package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"league-scoring-system/models"
)

// Side identifies which team's device is acting.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

func (s Side) opponent() Side {
	if s == SideHome {
		return SideAway
	}
	return SideHome
}

// SideForTeam maps a team id onto home/away for a match.
func SideForTeam(match *models.Match, teamID string) (Side, error) {
	switch teamID {
	case match.HomeTeamID:
		return SideHome, nil
	case match.AwayTeamID:
		return SideAway, nil
	default:
		return "", fmt.Errorf("team %s is not part of match %s", teamID, match.ID)
	}
}

// LedgerService owns the per-game record store: idempotent creation of the
// game ledger and every transition of the confirmation protocol. All writes
// are single-record updates; a side only ever sets its own confirmation flag,
// except where the protocol explicitly clears or restores both (deny and
// vacate handling).
type LedgerService struct {
	Store   RecordStore
	Lineups *LineupService
}

func NewLedgerService(db *gorm.DB, lineups *LineupService) *LedgerService {
	return &LedgerService{Store: NewStore(db), Lineups: lineups}
}

// EnsureGames creates every main-bracket game row for a match from the game
// order and the two locked lineups. Both devices call this after locking
// their own lineup; the bounded wait covers the window where the opponent's
// lock has not yet landed. Whichever insert lands second hits the uniqueness
// constraint and treats it as "already created, continue".
func (s *LedgerService) EnsureGames(ctx context.Context, matchID string) error {
	match, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	home, away, err := s.Lineups.WaitForBothLocked(ctx, matchID)
	if err != nil {
		return err
	}

	order, err := GameOrder(match.PlayersPerTeam, match.DoubleRoundRobin)
	if err != nil {
		return err
	}
	games, err := buildGames(match.ID, order, home, away, false)
	if err != nil {
		return err
	}

	// Derive the games-needed targets exactly once, while both lineups are
	// still locked. A tie-break round later unlocks the lineups; the targets
	// must not move with them.
	if match.HomeGamesToWin == 0 {
		th, err := ResolveThresholds(match.PlayersPerTeam, home.AggregateHandicap, home.HomeTeamModifier, away.AggregateHandicap)
		if err != nil {
			return err
		}
		if err := s.Store.UpdateMatch(ctx, match.ID, map[string]any{
			"home_games_to_win":  th.Home.GamesToWin,
			"home_games_to_tie":  th.Home.GamesToTie,
			"home_games_to_lose": th.Home.GamesToLose,
			"away_games_to_win":  th.Away.GamesToWin,
			"away_games_to_tie":  th.Away.GamesToTie,
			"away_games_to_lose": th.Away.GamesToLose,
		}); err != nil {
			return err
		}
	}

	if err := s.Store.CreateGames(ctx, games); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil
		}
		return err
	}
	return nil
}

func buildGames(matchID string, order []GameSlot, home, away *LockedLineup, tiebreak bool) ([]models.MatchGame, error) {
	games := make([]models.MatchGame, 0, len(order))
	for _, slot := range order {
		homePlayer, err := playerForSlot(home, slot.HomeSlot)
		if err != nil {
			return nil, err
		}
		awayPlayer, err := playerForSlot(away, slot.AwaySlot)
		if err != nil {
			return nil, err
		}
		games = append(games, models.MatchGame{
			MatchID:      matchID,
			GameNumber:   slot.GameNumber,
			HomePlayerID: homePlayer,
			AwayPlayerID: awayPlayer,
			HomePosition: slot.HomeSlot,
			AwayPosition: slot.AwaySlot,
			HomeAction:   slot.HomeAction,
			AwayAction:   slot.AwayAction,
			IsTiebreaker: tiebreak,
		})
	}
	return games, nil
}

func playerForSlot(lineup *LockedLineup, position int) (string, error) {
	for _, s := range lineup.Slots {
		if s.Position == position {
			return s.PlayerID, nil
		}
	}
	return "", fmt.Errorf("no player at position %d for team %s", position, lineup.TeamID)
}

// ScoreGame records a winner on an unscored game. The scoring side sets only
// its own confirmation flag; the opponent's device must confirm separately.
// Mutually exclusive special markers are rejected before any write.
func (s *LedgerService) ScoreGame(ctx context.Context, gameID string, side Side, winnerPlayerID string, breakAndRun, goldenBreak bool) error {
	if breakAndRun && goldenBreak {
		return ErrExclusiveMarkers
	}
	game, err := s.Store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.State() != models.GameUnscored {
		return ErrInvalidTransition
	}
	match, err := s.Store.GetMatch(ctx, game.MatchID)
	if err != nil {
		return err
	}

	var winnerTeamID string
	switch winnerPlayerID {
	case game.HomePlayerID:
		winnerTeamID = match.HomeTeamID
	case game.AwayPlayerID:
		winnerTeamID = match.AwayTeamID
	default:
		return fmt.Errorf("player %s is not in game %d", winnerPlayerID, game.GameNumber)
	}

	// Own flag only; the opponent's is already false on any unscored row, and
	// no caller may ever write a column the other side owns.
	fields := map[string]any{
		"winner_player_id": winnerPlayerID,
		"winner_team_id":   winnerTeamID,
		"break_and_run":    breakAndRun,
		"golden_break":     goldenBreak,
	}
	fields[confirmColumn(side)] = true
	return s.Store.UpdateGame(ctx, gameID, fields)
}

// ConfirmGame sets the acting side's confirmation flag on a pending game. If
// this side already confirmed (including having been the scorer) the call is
// a no-op rather than an error, so a duplicate tap or a replayed request is
// harmless.
func (s *LedgerService) ConfirmGame(ctx context.Context, gameID string, side Side) error {
	game, err := s.Store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.State() != models.GamePending {
		return ErrInvalidTransition
	}
	if confirmedBy(game, side) {
		return nil
	}

	now := time.Now().UTC()
	return s.Store.UpdateGame(ctx, gameID, map[string]any{
		confirmColumn(side): true,
		"confirmed_at":      now,
	})
}

// DenyGame rejects a pending score: winner, special markers and both
// confirmation flags are cleared and the game returns to unscored.
func (s *LedgerService) DenyGame(ctx context.Context, gameID string, side Side) error {
	game, err := s.Store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.State() != models.GamePending {
		return ErrInvalidTransition
	}
	return s.Store.UpdateGame(ctx, gameID, clearResultFields())
}

// RequestVacate asks to undo a confirmed result. The winner stays on the row
// while both confirmation flags drop, and the requester is recorded both on
// the row and in the session so its own client never prompts itself.
func (s *LedgerService) RequestVacate(ctx context.Context, gameID string, side Side, memberID string, session *SessionState) error {
	game, err := s.Store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.State() != models.GameConfirmed {
		return ErrInvalidTransition
	}

	err = s.Store.UpdateGame(ctx, gameID, map[string]any{
		"confirmed_by_home":   false,
		"confirmed_by_away":   false,
		"confirmed_at":        nil,
		"vacate_requested_by": memberID,
	})
	if err != nil {
		return err
	}
	if session != nil {
		session.MarkVacateRequested(gameID)
	}
	return nil
}

// AcceptVacate grants a vacate request: the result is erased entirely.
func (s *LedgerService) AcceptVacate(ctx context.Context, gameID string, side Side, session *SessionState) error {
	game, err := s.Store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.State() != models.GameVacateRequested {
		return ErrInvalidTransition
	}
	if err := s.Store.UpdateGame(ctx, gameID, clearResultFields()); err != nil {
		return err
	}
	if session != nil {
		session.ClearVacateRequested(gameID)
	}
	return nil
}

// DenyVacate refuses a vacate request: both confirmation flags are restored
// and the original result stands.
func (s *LedgerService) DenyVacate(ctx context.Context, gameID string, side Side, session *SessionState) error {
	game, err := s.Store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.State() != models.GameVacateRequested {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	if err := s.Store.UpdateGame(ctx, gameID, map[string]any{
		"confirmed_by_home":   true,
		"confirmed_by_away":   true,
		"confirmed_at":        now,
		"vacate_requested_by": nil,
	}); err != nil {
		return err
	}
	if session != nil {
		session.ClearVacateRequested(gameID)
	}
	return nil
}

// PendingConfirmations lists the games awaiting this side's agreement:
// pending scores the other side entered, plus vacate requests this session
// did not initiate.
func (s *LedgerService) PendingConfirmations(ctx context.Context, matchID string, side Side, session *SessionState) ([]models.MatchGame, error) {
	games, err := s.Store.ListGames(ctx, matchID)
	if err != nil {
		return nil, err
	}
	var pending []models.MatchGame
	for _, g := range games {
		switch g.State() {
		case models.GamePending:
			if !confirmedBy(&g, side) {
				pending = append(pending, g)
			}
		case models.GameVacateRequested:
			if session == nil || !session.RequestedVacate(g.ID) {
				pending = append(pending, g)
			}
		}
	}
	return pending, nil
}

func confirmColumn(side Side) string {
	if side == SideHome {
		return "confirmed_by_home"
	}
	return "confirmed_by_away"
}

func confirmedBy(g *models.MatchGame, side Side) bool {
	if side == SideHome {
		return g.ConfirmedByHome
	}
	return g.ConfirmedByAway
}

func clearResultFields() map[string]any {
	return map[string]any{
		"winner_player_id":    nil,
		"winner_team_id":      nil,
		"break_and_run":       false,
		"golden_break":        false,
		"confirmed_by_home":   false,
		"confirmed_by_away":   false,
		"confirmed_at":        nil,
		"vacate_requested_by": nil,
	}
}

// --- HTTP endpoints ---

func (s *LedgerService) actingSide(c *fiber.Ctx, matchID string) (Side, *models.Match, error) {
	match, err := s.Store.GetMatch(c.Context(), matchID)
	if err != nil {
		return "", nil, err
	}
	side, err := SideForTeam(match, c.Get("X-Team-ID"))
	if err != nil {
		return "", nil, err
	}
	return side, match, nil
}

// EnsureGamesEndpoint handles POST /matches/:id/games
func (s *LedgerService) EnsureGamesEndpoint(c *fiber.Ctx) error {
	err := s.EnsureGames(c.Context(), c.Params("id"))
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "games ready"})
	case errors.Is(err, ErrLineupNotLocked), errors.Is(err, ErrNotFound):
		return c.Status(409).JSON(fiber.Map{"error": "both lineups must be locked first"})
	case errors.Is(err, ErrPollTimeout):
		return c.Status(409).JSON(fiber.Map{"error": "timed out waiting for the other team's lineup, please retry"})
	default:
		log.Printf("[LEDGER] ensure games failed for match %s: %v", c.Params("id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create games"})
	}
}

// ListGamesEndpoint handles GET /matches/:id/games
func (s *LedgerService) ListGamesEndpoint(c *fiber.Ctx) error {
	games, err := s.Store.ListGames(c.Context(), c.Params("id"))
	if err != nil {
		log.Printf("[LEDGER] list games failed for match %s: %v", c.Params("id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to load games"})
	}
	return c.JSON(fiber.Map{"games": games, "count": len(games)})
}

// ScoreGameEndpoint handles POST /matches/:id/games/:game_id/score
func (s *LedgerService) ScoreGameEndpoint(c *fiber.Ctx) error {
	var req struct {
		WinnerPlayerID string `json:"winner_player_id"`
		BreakAndRun    bool   `json:"break_and_run"`
		GoldenBreak    bool   `json:"golden_break"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	side, _, err := s.actingSide(c, c.Params("id"))
	if err != nil {
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	}

	err = s.ScoreGame(c.Context(), c.Params("game_id"), side, req.WinnerPlayerID, req.BreakAndRun, req.GoldenBreak)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "game scored, awaiting opponent confirmation"})
	case errors.Is(err, ErrExclusiveMarkers):
		return c.Status(400).JSON(fiber.Map{"error": "break-and-run and golden-break cannot both be set"})
	case errors.Is(err, ErrInvalidTransition):
		return c.Status(409).JSON(fiber.Map{"error": "game already has a result"})
	case errors.Is(err, ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "game not found"})
	default:
		log.Printf("[LEDGER] score failed for game %s: %v", c.Params("game_id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to score game"})
	}
}

// ConfirmGameEndpoint handles POST /matches/:id/games/:game_id/confirm
func (s *LedgerService) ConfirmGameEndpoint(c *fiber.Ctx) error {
	side, _, err := s.actingSide(c, c.Params("id"))
	if err != nil {
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	}
	return s.transitionResponse(c, s.ConfirmGame(c.Context(), c.Params("game_id"), side), "game confirmed")
}

// DenyGameEndpoint handles POST /matches/:id/games/:game_id/deny
func (s *LedgerService) DenyGameEndpoint(c *fiber.Ctx) error {
	side, _, err := s.actingSide(c, c.Params("id"))
	if err != nil {
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	}
	return s.transitionResponse(c, s.DenyGame(c.Context(), c.Params("game_id"), side), "score denied, game reset")
}

// RequestVacateEndpoint handles POST /matches/:id/games/:game_id/vacate
func (s *LedgerService) RequestVacateEndpoint(c *fiber.Ctx) error {
	side, _, err := s.actingSide(c, c.Params("id"))
	if err != nil {
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	}
	memberID, _ := c.Locals("user_id").(string)
	session := sessionFromCtx(c)
	return s.transitionResponse(c, s.RequestVacate(c.Context(), c.Params("game_id"), side, memberID, session), "vacate requested")
}

// AcceptVacateEndpoint handles POST /matches/:id/games/:game_id/vacate/accept
func (s *LedgerService) AcceptVacateEndpoint(c *fiber.Ctx) error {
	side, _, err := s.actingSide(c, c.Params("id"))
	if err != nil {
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	}
	return s.transitionResponse(c, s.AcceptVacate(c.Context(), c.Params("game_id"), side, sessionFromCtx(c)), "result vacated")
}

// DenyVacateEndpoint handles POST /matches/:id/games/:game_id/vacate/deny
func (s *LedgerService) DenyVacateEndpoint(c *fiber.Ctx) error {
	side, _, err := s.actingSide(c, c.Params("id"))
	if err != nil {
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	}
	return s.transitionResponse(c, s.DenyVacate(c.Context(), c.Params("game_id"), side, sessionFromCtx(c)), "vacate denied, result stands")
}

// PendingEndpoint handles GET /matches/:id/games/pending
func (s *LedgerService) PendingEndpoint(c *fiber.Ctx) error {
	side, _, err := s.actingSide(c, c.Params("id"))
	if err != nil {
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	}
	pending, err := s.PendingConfirmations(c.Context(), c.Params("id"), side, sessionFromCtx(c))
	if err != nil {
		log.Printf("[LEDGER] pending list failed for match %s: %v", c.Params("id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to load pending games"})
	}
	return c.JSON(fiber.Map{"pending": pending, "count": len(pending)})
}

func (s *LedgerService) transitionResponse(c *fiber.Ctx, err error, okMessage string) error {
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": okMessage})
	case errors.Is(err, ErrInvalidTransition):
		return c.Status(409).JSON(fiber.Map{"error": "game is not in a state that allows this action"})
	case errors.Is(err, ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "game not found"})
	default:
		log.Printf("[LEDGER] transition failed for game %s: %v", c.Params("game_id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to update game"})
	}
}
