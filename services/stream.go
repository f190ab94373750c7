package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"league-scoring-system/models"
)

// StreamService pushes match changes to connected scoring clients. The feed
// is responsiveness only: protocol correctness never depends on it, clients
// that miss events simply re-read on their next action.
type StreamService struct {
	DB *gorm.DB
}

func NewStreamService(db *gorm.DB) *StreamService {
	return &StreamService{DB: db}
}

// StreamMatchSSE streams game and match updates for one match over
// server-sent events. Emits a "game" event per changed ledger row and a
// "match" event whenever the match row itself moves.
func (s *StreamService) StreamMatchSSE(c *fiber.Ctx) error {
	matchID := c.Params("id")

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastGameUpdate, lastMatchUpdate time.Time

		var match models.Match
		if err := s.DB.First(&match, "id = ?", matchID).Error; err == nil {
			lastMatchUpdate = match.UpdatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for match %s: %v", matchID, err)
		}

		var latest models.MatchGame
		if err := s.DB.Where("match_id = ?", matchID).
			Order("updated_at DESC").
			First(&latest).Error; err == nil {
			lastGameUpdate = latest.UpdatedAt
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var changed []models.MatchGame
				if err := s.DB.
					Where("match_id = ? AND updated_at > ?", matchID, lastGameUpdate).
					Order("updated_at ASC").
					Find(&changed).Error; err != nil {
					log.Printf("SSE query error for match %s: %v", matchID, err)
					continue
				}
				for _, g := range changed {
					lastGameUpdate = g.UpdatedAt
					payload, _ := json.Marshal(g)
					fmt.Fprintf(w, "event: game\ndata: %s\n\n", payload)
				}

				var m models.Match
				if err := s.DB.First(&m, "id = ?", matchID).Error; err == nil && m.UpdatedAt.After(lastMatchUpdate) {
					lastMatchUpdate = m.UpdatedAt
					payload, _ := json.Marshal(m)
					fmt.Fprintf(w, "event: match\ndata: %s\n\n", payload)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
