package handlers

import (
	"league-scoring-system/middleware"
	"league-scoring-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(app *fiber.App,
	lineupService *services.LineupService,
	ledgerService *services.LedgerService,
	completionService *services.CompletionService,
	streamService *services.StreamService,
) {
	// Public reads — no user context, but still behind Gateway auth
	app.Get("/matches/:id/status", completionService.StatusEndpoint)
	app.Get("/matches/:id/games", ledgerService.ListGamesEndpoint)
	app.Get("/matches/:id/stream", streamService.StreamMatchSSE)

	// Secured routes — require member context (userID, team) from Gateway
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Lineup registration and locking
	secured.Put("/matches/:id/lineups/:team_id/slots/:position", lineupService.AssignSlotEndpoint)
	secured.Post("/matches/:id/lineups/:team_id/lock", lineupService.LockEndpoint)
	secured.Get("/matches/:id/lineups/:team_id", lineupService.GetLineupEndpoint)

	// Game ledger
	secured.Post("/matches/:id/games", ledgerService.EnsureGamesEndpoint)
	secured.Get("/matches/:id/games/pending", ledgerService.PendingEndpoint)
	secured.Post("/matches/:id/games/:game_id/score", ledgerService.ScoreGameEndpoint)
	secured.Post("/matches/:id/games/:game_id/confirm", ledgerService.ConfirmGameEndpoint)
	secured.Post("/matches/:id/games/:game_id/deny", ledgerService.DenyGameEndpoint)
	secured.Post("/matches/:id/games/:game_id/vacate", ledgerService.RequestVacateEndpoint)
	secured.Post("/matches/:id/games/:game_id/vacate/accept", ledgerService.AcceptVacateEndpoint)
	secured.Post("/matches/:id/games/:game_id/vacate/deny", ledgerService.DenyVacateEndpoint)

	// Match verification and finalization
	secured.Post("/matches/:id/verify", completionService.VerifyEndpoint)
}
