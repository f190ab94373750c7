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

// Coordinator states. Derived from the shared rows, never stored: both
// devices walk the same machine independently and converge on Done.
const (
	StateAwaitingBothLineups      = "awaiting_both_lineups"
	StateAwaitingBothVerification = "awaiting_both_verification"
	StateElecting                 = "electing"
	StateFinalizing               = "finalizing"
	StateDone                     = "done"
)

// CompletionService detects dual-sided verification, elects a single acting
// device and finalizes the match (or spins up a tie-break round). All of its
// store writes are idempotent or guarded by the finalize claim, so two
// devices racing through the same steps cannot duplicate side effects.
type CompletionService struct {
	Store        RecordStore
	Lineups      *LineupService
	Ledger       *LedgerService
	PollInterval time.Duration
	PollAttempts int
}

func NewCompletionService(db *gorm.DB, lineups *LineupService, ledger *LedgerService) *CompletionService {
	return &CompletionService{
		Store:        NewStore(db),
		Lineups:      lineups,
		Ledger:       ledger,
		PollInterval: 2 * time.Second,
		PollAttempts: 15,
	}
}

// MatchStatus is the coordinator's read contract for the presentation layer.
type MatchStatus struct {
	MatchID              string   `json:"match_id"`
	State                string   `json:"state"`
	Status               string   `json:"status"`
	Result               string   `json:"result,omitempty"`
	HomePoints           float64  `json:"home_points"`
	AwayPoints           float64  `json:"away_points"`
	HomeWins             int      `json:"home_wins"`
	AwayWins             int      `json:"away_wins"`
	PendingVerifications []string `json:"pending_verifications"`
	TiebreakInProgress   bool     `json:"tiebreak_in_progress"`
}

// VerifyOutcome reports what happened after one side verified.
type VerifyOutcome struct {
	State           string `json:"state"`
	Result          string `json:"result,omitempty"`
	Finalized       bool   `json:"finalized"`
	ActedAsVerifier bool   `json:"acted_as_first_verifier"`
	TiebreakCreated bool   `json:"tiebreak_created"`
}

// State derives the coordinator state for a match from the shared rows.
func (s *CompletionService) State(ctx context.Context, matchID string) (string, error) {
	match, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return "", err
	}
	return s.stateOf(ctx, match)
}

func (s *CompletionService) stateOf(ctx context.Context, match *models.Match) (string, error) {
	if match.Status == models.MatchStatusCompleted {
		return StateDone, nil
	}
	if !s.bothLocked(ctx, match) {
		return StateAwaitingBothLineups, nil
	}
	switch {
	case match.FinalizeClaimedBy != nil:
		return StateFinalizing, nil
	case match.HomeVerifiedBy != nil && match.AwayVerifiedBy != nil:
		return StateElecting, nil
	default:
		return StateAwaitingBothVerification, nil
	}
}

func (s *CompletionService) bothLocked(ctx context.Context, match *models.Match) bool {
	for _, teamID := range []string{match.HomeTeamID, match.AwayTeamID} {
		lineup, err := s.Store.GetLineup(ctx, match.ID, teamID)
		if err != nil || !lineup.Locked {
			return false
		}
	}
	return true
}

// Verify records one side's verification of the complete scoresheet and runs
// the machine forward: if this write makes both columns non-empty, the device
// re-reads the row, the election picks the first verifier, and only the
// winner of the follow-up claim performs finalization. The other device polls
// for the outcome; if the elected device never delivers one, the poller
// contends for the claim itself, so a crashed or absent first verifier cannot
// strand the match. The claim, not the election, is what holds actors to one.
func (s *CompletionService) Verify(ctx context.Context, matchID string, side Side, memberID string, session *SessionState) (*VerifyOutcome, error) {
	match, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status == models.MatchStatusCompleted {
		return &VerifyOutcome{State: StateDone, Result: match.Result, Finalized: true}, nil
	}

	games, err := s.Store.ListGames(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := s.requireBracketConfirmed(match, games); err != nil {
		return nil, err
	}

	// Own column only. Re-verifying is a no-op so a retried request after a
	// failed finalization replays cleanly.
	if !verifiedBy(match, side) {
		now := time.Now().UTC()
		if err := s.Store.UpdateMatch(ctx, matchID, map[string]any{
			verifyColumn(side):     memberID,
			verifyTimeColumn(side): now,
		}); err != nil {
			return nil, err
		}
	}

	// Re-read: has the opponent's column become visible?
	match, err = s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.HomeVerifiedBy == nil || match.AwayVerifiedBy == nil {
		return &VerifyOutcome{State: StateAwaitingBothVerification}, nil
	}

	elected := electFirstVerifier(derefTime(match.HomeVerifiedAt), derefTime(match.AwayVerifiedAt), side)
	if !elected {
		// Wait for the first verifier's finalization to land. If it never
		// does (device gone, its retries exhausted), fall through and contend
		// for the claim: the election is only an ordering hint.
		outcome, err := s.awaitOutcome(ctx, matchID)
		if err == nil {
			return outcome, nil
		}
		if !errors.Is(err, ErrPollTimeout) {
			return nil, err
		}
	}

	if session != nil && !session.BeginFinalize(matchID) {
		// A finalization from this session is already in flight.
		return &VerifyOutcome{State: StateFinalizing}, nil
	}

	won, err := s.Store.ClaimFinalize(ctx, matchID, memberID)
	if err != nil {
		if session != nil {
			session.EndFinalize(matchID)
		}
		return nil, err
	}
	if !won {
		// Someone else holds the claim; fall back to waiting.
		if session != nil {
			session.EndFinalize(matchID)
		}
		return s.awaitOutcome(ctx, matchID)
	}

	outcome, err := s.finalize(ctx, matchID)
	if session != nil {
		// The attempt is over either way; every remote step is idempotent,
		// so a retry after a failure replays safely.
		session.EndFinalize(matchID)
	}
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// requireBracketConfirmed checks that the bracket currently being verified is
// fully agreed: every main game confirmed, or, once a tie-break round exists,
// a decided best-of-3.
func (s *CompletionService) requireBracketConfirmed(match *models.Match, games []models.MatchGame) error {
	order, err := GameOrder(match.PlayersPerTeam, match.DoubleRoundRobin)
	if err != nil {
		return err
	}

	var tiebreaks []models.MatchGame
	mainConfirmed := 0
	for _, g := range games {
		if g.IsTiebreaker {
			tiebreaks = append(tiebreaks, g)
		} else if g.Confirmed() {
			mainConfirmed++
		}
	}

	if len(tiebreaks) > 0 {
		tally := TallyTiebreakWins(games, match.HomeTeamID, match.AwayTeamID)
		tb := TiebreakThresholds()
		if tally.HomeWins < tb.Home.GamesToWin && tally.AwayWins < tb.Away.GamesToWin {
			return ErrGamesOutstanding
		}
		return nil
	}

	if mainConfirmed < len(order) {
		return ErrGamesOutstanding
	}
	return nil
}

// finalize performs the single-actor side effects: result, points, and for a
// tied main bracket, the tie-break round. Only ever runs under a won claim.
// Sets ActedAsVerifier on the outcome only when it actually wrote something.
func (s *CompletionService) finalize(ctx context.Context, matchID string) (*VerifyOutcome, error) {
	match, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	// Fresh read under the claim: the ledger may have grown a tie-break
	// round since this device first looked at it.
	games, err := s.Store.ListGames(ctx, matchID)
	if err != nil {
		return nil, err
	}
	th := thresholdsOf(match)
	mainTally := TallyMainWins(games, match.HomeTeamID, match.AwayTeamID)

	var tiebreaks []models.MatchGame
	for _, g := range games {
		if g.IsTiebreaker {
			tiebreaks = append(tiebreaks, g)
		}
	}

	if len(tiebreaks) == 0 {
		result := MatchOutcome(mainTally, th)
		if result == "" {
			return nil, fmt.Errorf("bracket confirmed but no outcome reachable for match %s", matchID)
		}
		if result == models.ResultTie {
			if err := s.startTiebreak(ctx, match); err != nil {
				return nil, err
			}
			return &VerifyOutcome{State: StateAwaitingBothVerification, TiebreakCreated: true, ActedAsVerifier: true}, nil
		}
		if err := s.complete(ctx, match, result, mainTally, th); err != nil {
			return nil, err
		}
		return &VerifyOutcome{State: StateDone, Result: result, Finalized: true, ActedAsVerifier: true}, nil
	}

	tbTally := TallyTiebreakWins(games, match.HomeTeamID, match.AwayTeamID)
	tb := TiebreakThresholds()
	if tbTally.HomeWins < tb.Home.GamesToWin && tbTally.AwayWins < tb.Away.GamesToWin {
		// Another actor spun the round up between this device's first read
		// and its claim. Nothing to do until the best-of-3 is decided; hand
		// the claim back so the next verification cycle can elect.
		if err := s.Store.ClearFinalizeClaim(ctx, matchID); err != nil {
			return nil, err
		}
		return &VerifyOutcome{State: StateAwaitingBothVerification, TiebreakCreated: true}, nil
	}

	// Decided tie-break round: the team result, not individual game results,
	// governs tie-break handicap credit.
	result := models.ResultHomeWin
	winnerTeamID := match.HomeTeamID
	if tbTally.AwayWins > tbTally.HomeWins {
		result = models.ResultAwayWin
		winnerTeamID = match.AwayTeamID
	}
	if err := s.overrideTiebreakCredit(ctx, match, tiebreaks, winnerTeamID); err != nil {
		return nil, err
	}
	if err := s.complete(ctx, match, result, mainTally, th); err != nil {
		return nil, err
	}
	return &VerifyOutcome{State: StateDone, Result: result, Finalized: true, ActedAsVerifier: true}, nil
}

// startTiebreak creates exactly three supplementary games, unlocks both
// lineups and clears the verification cycle so both sides verify again once
// the best-of-3 is decided. Game insertion treats a duplicate key as "the
// other actor already created them".
func (s *CompletionService) startTiebreak(ctx context.Context, match *models.Match) error {
	home, err := s.Lineups.Locked(ctx, match.ID, match.HomeTeamID)
	if err != nil {
		return err
	}
	away, err := s.Lineups.Locked(ctx, match.ID, match.AwayTeamID)
	if err != nil {
		return err
	}

	order, err := GameOrder(match.PlayersPerTeam, match.DoubleRoundRobin)
	if err != nil {
		return err
	}
	games, err := buildGames(match.ID, TiebreakOrder(len(order)), home, away, true)
	if err != nil {
		return err
	}
	if err := s.Store.CreateGames(ctx, games); err != nil && !errors.Is(err, ErrAlreadyExists) {
		return err
	}

	for _, teamID := range []string{match.HomeTeamID, match.AwayTeamID} {
		lineup, err := s.Store.GetLineup(ctx, match.ID, teamID)
		if err != nil {
			return err
		}
		if err := s.Store.UpdateLineup(ctx, lineup.ID, map[string]any{
			"locked":    false,
			"locked_at": nil,
		}); err != nil {
			return err
		}
	}

	return s.Store.UpdateMatch(ctx, match.ID, map[string]any{
		"home_verified_by":    nil,
		"away_verified_by":    nil,
		"home_verified_at":    nil,
		"away_verified_at":    nil,
		"finalize_claimed_by": nil,
		"finalize_claimed_at": nil,
	})
}

// overrideTiebreakCredit force-rewrites every tie-break row so each one
// credits the winning lineup and carries both confirmations, regardless of
// each game's original outcome.
func (s *CompletionService) overrideTiebreakCredit(ctx context.Context, match *models.Match, tiebreaks []models.MatchGame, winnerTeamID string) error {
	now := time.Now().UTC()
	for _, g := range tiebreaks {
		winnerPlayer := g.HomePlayerID
		if winnerTeamID == match.AwayTeamID {
			winnerPlayer = g.AwayPlayerID
		}
		if err := s.Store.UpdateGame(ctx, g.ID, map[string]any{
			"winner_team_id":      winnerTeamID,
			"winner_player_id":    winnerPlayer,
			"confirmed_by_home":   true,
			"confirmed_by_away":   true,
			"confirmed_at":        now,
			"vacate_requested_by": nil,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *CompletionService) complete(ctx context.Context, match *models.Match, result string, tally WinTally, th MatchThresholds) error {
	now := time.Now().UTC()
	return s.Store.UpdateMatch(ctx, match.ID, map[string]any{
		"result":       result,
		"status":       models.MatchStatusCompleted,
		"home_points":  Points(match.PlayersPerTeam, tally.HomeWins, th.Home),
		"away_points":  Points(match.PlayersPerTeam, tally.AwayWins, th.Away),
		"completed_at": now,
	})
}

// awaitOutcome is the losing device's bounded poll: wait until the acting
// device's finalization (final status or freshly created tie-break games)
// becomes visible, then proceed. Exhausting the budget fails with a
// retryable timeout rather than blocking indefinitely.
func (s *CompletionService) awaitOutcome(ctx context.Context, matchID string) (*VerifyOutcome, error) {
	for attempt := 0; attempt < s.PollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.PollInterval):
			}
		}
		match, err := s.Store.GetMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if match.Status == models.MatchStatusCompleted {
			return &VerifyOutcome{State: StateDone, Result: match.Result, Finalized: true}, nil
		}
		games, err := s.Store.ListGames(ctx, matchID)
		if err != nil {
			return nil, err
		}
		for _, g := range games {
			if g.IsTiebreaker && !g.Confirmed() {
				return &VerifyOutcome{State: StateAwaitingBothVerification, TiebreakCreated: true}, nil
			}
		}
	}
	return nil, ErrPollTimeout
}

// Status assembles the presentation-layer view of a match.
func (s *CompletionService) Status(ctx context.Context, matchID string) (*MatchStatus, error) {
	match, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	games, err := s.Store.ListGames(ctx, matchID)
	if err != nil {
		return nil, err
	}
	state, err := s.stateOf(ctx, match)
	if err != nil {
		return nil, err
	}

	tally := TallyMainWins(games, match.HomeTeamID, match.AwayTeamID)
	status := &MatchStatus{
		MatchID:    match.ID,
		State:      state,
		Status:     match.Status,
		Result:     match.Result,
		HomePoints: match.HomePoints,
		AwayPoints: match.AwayPoints,
		HomeWins:   tally.HomeWins,
		AwayWins:   tally.AwayWins,
	}
	if match.HomeVerifiedBy == nil {
		status.PendingVerifications = append(status.PendingVerifications, string(SideHome))
	}
	if match.AwayVerifiedBy == nil {
		status.PendingVerifications = append(status.PendingVerifications, string(SideAway))
	}
	for _, g := range games {
		if g.IsTiebreaker && match.Status != models.MatchStatusCompleted {
			status.TiebreakInProgress = true
			break
		}
	}
	return status, nil
}

func verifyColumn(side Side) string {
	if side == SideHome {
		return "home_verified_by"
	}
	return "away_verified_by"
}

func verifyTimeColumn(side Side) string {
	if side == SideHome {
		return "home_verified_at"
	}
	return "away_verified_at"
}

func verifiedBy(m *models.Match, side Side) bool {
	if side == SideHome {
		return m.HomeVerifiedBy != nil
	}
	return m.AwayVerifiedBy != nil
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func thresholdsOf(m *models.Match) MatchThresholds {
	return MatchThresholds{
		Home: Thresholds{GamesToWin: m.HomeGamesToWin, GamesToTie: m.HomeGamesToTie, GamesToLose: m.HomeGamesToLose},
		Away: Thresholds{GamesToWin: m.AwayGamesToWin, GamesToTie: m.AwayGamesToTie, GamesToLose: m.AwayGamesToLose},
	}
}

// --- HTTP endpoints ---

// VerifyEndpoint handles POST /matches/:id/verify
func (s *CompletionService) VerifyEndpoint(c *fiber.Ctx) error {
	match, err := s.Store.GetMatch(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "match not found"})
	}
	side, err := SideForTeam(match, c.Get("X-Team-ID"))
	if err != nil {
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	}
	memberID, _ := c.Locals("user_id").(string)

	outcome, err := s.Verify(c.Context(), match.ID, side, memberID, sessionFromCtx(c))
	switch {
	case err == nil:
		return c.JSON(outcome)
	case errors.Is(err, ErrGamesOutstanding):
		return c.Status(409).JSON(fiber.Map{"error": "not every game is confirmed yet"})
	case errors.Is(err, ErrPollTimeout):
		return c.Status(409).JSON(fiber.Map{"error": "timed out waiting for the other team, please retry"})
	default:
		log.Printf("[VERIFY] verify failed for match %s: %v", match.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "verification failed"})
	}
}

// StatusEndpoint handles GET /matches/:id/status
func (s *CompletionService) StatusEndpoint(c *fiber.Ctx) error {
	status, err := s.Status(c.Context(), c.Params("id"))
	switch {
	case err == nil:
		return c.JSON(status)
	case errors.Is(err, ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "match not found"})
	default:
		log.Printf("[VERIFY] status failed for match %s: %v", c.Params("id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to load match status"})
	}
}
