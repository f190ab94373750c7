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

// LineupService handles per-position player assignment and lineup locking.
// Handicaps are frozen into the lineup row at assignment time, so a player's
// rolling handicap changing mid-season never retroactively moves a match.
type LineupService struct {
	Store        RecordStore
	PollInterval time.Duration
	PollAttempts int
}

func NewLineupService(db *gorm.DB) *LineupService {
	return &LineupService{
		Store:        NewStore(db),
		PollInterval: 2 * time.Second,
		PollAttempts: 15,
	}
}

// LineupSlot is one position in a locked lineup as exposed to the threshold
// resolver and the presentation layer.
type LineupSlot struct {
	Position int    `json:"position"`
	PlayerID string `json:"player_id"`
	Handicap int    `json:"handicap"`
}

// LockedLineup is the registrar's read contract for other components.
type LockedLineup struct {
	TeamID            string       `json:"team_id"`
	Slots             []LineupSlot `json:"slots"`
	AggregateHandicap int          `json:"aggregate_handicap"`
	HomeTeamModifier  int          `json:"home_team_modifier"`
}

// AssignSlot sets one position of an unlocked lineup, creating the lineup row
// on first use. A substitute is assigned the same way as a roster player: the
// handicap passed in is whatever the sub currently carries, and it freezes
// into the slot. Rejected once the lineup is locked.
func (s *LineupService) AssignSlot(ctx context.Context, matchID, teamID string, position int, playerID string, handicap int) error {
	match, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if position < 1 || position > match.PlayersPerTeam {
		return fmt.Errorf("position %d out of range for %d players per team", position, match.PlayersPerTeam)
	}

	lineup, err := s.ensureLineup(ctx, matchID, teamID)
	if err != nil {
		return err
	}
	if lineup.Locked {
		return ErrLineupLocked
	}

	fields := map[string]any{
		fmt.Sprintf("player%d_id", position):       playerID,
		fmt.Sprintf("player%d_handicap", position): handicap,
	}
	return s.Store.UpdateLineup(ctx, lineup.ID, fields)
}

// Lock freezes the lineup. Every position must be filled; the aggregate
// handicap is computed here and never recomputed. Locking an already locked
// lineup is a no-op so a double-tap or a retried request cannot fail.
func (s *LineupService) Lock(ctx context.Context, matchID, teamID string, homeModifier int) error {
	match, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	lineup, err := s.Store.GetLineup(ctx, matchID, teamID)
	if err != nil {
		return err
	}
	if lineup.Locked {
		return nil
	}
	for pos := 1; pos <= match.PlayersPerTeam; pos++ {
		if id, hc := lineup.PlayerAt(pos); id == nil || hc == nil {
			return ErrLineupIncomplete
		}
	}

	now := time.Now().UTC()
	fields := map[string]any{
		"locked":    true,
		"locked_at": now,
	}
	if teamID == match.HomeTeamID {
		fields["home_team_modifier"] = homeModifier
	}
	return s.Store.UpdateLineup(ctx, lineup.ID, fields)
}

// Locked returns the locked lineup for one side, or ErrLineupNotLocked.
func (s *LineupService) Locked(ctx context.Context, matchID, teamID string) (*LockedLineup, error) {
	match, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	lineup, err := s.Store.GetLineup(ctx, matchID, teamID)
	if err != nil {
		return nil, err
	}
	if !lineup.Locked {
		return nil, ErrLineupNotLocked
	}

	out := &LockedLineup{
		TeamID:           teamID,
		HomeTeamModifier: lineup.HomeTeamModifier,
	}
	for pos := 1; pos <= match.PlayersPerTeam; pos++ {
		id, hc := lineup.PlayerAt(pos)
		if id == nil || hc == nil {
			return nil, ErrLineupIncomplete
		}
		out.Slots = append(out.Slots, LineupSlot{Position: pos, PlayerID: *id, Handicap: *hc})
		out.AggregateHandicap += *hc
	}
	return out, nil
}

// WaitForBothLocked polls until both sides' lineups are locked or the attempt
// budget runs out. The other team's device locks asynchronously; there is no
// push channel the protocol depends on, so this is a plain bounded poll.
func (s *LineupService) WaitForBothLocked(ctx context.Context, matchID string) (home, away *LockedLineup, err error) {
	match, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	for attempt := 0; attempt < s.PollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(s.PollInterval):
			}
		}
		home, err = s.Locked(ctx, matchID, match.HomeTeamID)
		if err != nil && !errors.Is(err, ErrLineupNotLocked) && !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
		away, err = s.Locked(ctx, matchID, match.AwayTeamID)
		if err != nil && !errors.Is(err, ErrLineupNotLocked) && !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
		if home != nil && away != nil {
			return home, away, nil
		}
	}
	return nil, nil, ErrPollTimeout
}

func (s *LineupService) ensureLineup(ctx context.Context, matchID, teamID string) (*models.MatchLineup, error) {
	lineup, err := s.Store.GetLineup(ctx, matchID, teamID)
	if err == nil {
		return lineup, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	fresh := &models.MatchLineup{MatchID: matchID, TeamID: teamID}
	if err := s.Store.CreateLineup(ctx, fresh); err != nil && !errors.Is(err, ErrAlreadyExists) {
		return nil, err
	}
	// Re-read: either our insert landed or the other device beat us to it.
	return s.Store.GetLineup(ctx, matchID, teamID)
}

// --- HTTP endpoints ---

// AssignSlotEndpoint handles PUT /matches/:id/lineups/:team_id/slots/:position
func (s *LineupService) AssignSlotEndpoint(c *fiber.Ctx) error {
	var req struct {
		PlayerID string `json:"player_id"`
		Handicap int    `json:"handicap"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	position, err := c.ParamsInt("position")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid position"})
	}

	err = s.AssignSlot(c.Context(), c.Params("id"), c.Params("team_id"), position, req.PlayerID, req.Handicap)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "slot assigned"})
	case errors.Is(err, ErrLineupLocked):
		return c.Status(409).JSON(fiber.Map{"error": "lineup is locked"})
	case errors.Is(err, ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "match not found"})
	default:
		log.Printf("[LINEUP] assign slot failed for match %s: %v", c.Params("id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to assign slot"})
	}
}

// LockEndpoint handles POST /matches/:id/lineups/:team_id/lock
func (s *LineupService) LockEndpoint(c *fiber.Ctx) error {
	var req struct {
		HomeTeamModifier int `json:"home_team_modifier"`
	}
	// The body is optional; away teams lock without a modifier.
	_ = c.BodyParser(&req)

	err := s.Lock(c.Context(), c.Params("id"), c.Params("team_id"), req.HomeTeamModifier)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "lineup locked"})
	case errors.Is(err, ErrLineupIncomplete):
		return c.Status(400).JSON(fiber.Map{"error": "lineup has unfilled slots"})
	case errors.Is(err, ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "lineup not found"})
	default:
		log.Printf("[LINEUP] lock failed for match %s: %v", c.Params("id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to lock lineup"})
	}
}

// GetLineupEndpoint handles GET /matches/:id/lineups/:team_id
func (s *LineupService) GetLineupEndpoint(c *fiber.Ctx) error {
	locked, err := s.Locked(c.Context(), c.Params("id"), c.Params("team_id"))
	switch {
	case err == nil:
		return c.JSON(locked)
	case errors.Is(err, ErrLineupNotLocked):
		return c.Status(409).JSON(fiber.Map{"error": "lineup is not locked yet"})
	case errors.Is(err, ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "lineup not found"})
	default:
		log.Printf("[LINEUP] read failed for match %s: %v", c.Params("id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to load lineup"})
	}
}
