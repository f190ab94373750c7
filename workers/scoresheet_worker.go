package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"league-scoring-system/models"
	"league-scoring-system/utils"
)

// ScoresheetArchiver exports finalized matches to object storage so the
// league office has an immutable record independent of the live database.
type ScoresheetArchiver struct {
	DB *gorm.DB
}

func NewScoresheetArchiver(db *gorm.DB) *ScoresheetArchiver {
	return &ScoresheetArchiver{DB: db}
}

// Scoresheet is the archived document for one finalized match.
type Scoresheet struct {
	Match   models.Match         `json:"match"`
	Lineups []models.MatchLineup `json:"lineups"`
	Games   []models.MatchGame   `json:"games"`
}

// PollScoresheets archives completed matches on a fixed interval. A failed
// upload leaves archived_at empty, so the row is retried on the next tick.
func PollScoresheets(ctx context.Context, archiver *ScoresheetArchiver, pollInterval time.Duration) {
	log.Println("Starting scoresheet archive polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Scoresheet polling stopped.")
			return
		case <-ticker.C:
			var matches []models.Match
			err := archiver.DB.
				Where("status = ? AND archived_at IS NULL", models.MatchStatusCompleted).
				Limit(20).
				Find(&matches).Error
			if err != nil {
				log.Printf("[ARCHIVE] DB error: %v", err)
				continue
			}
			for _, m := range matches {
				if err := archiver.Archive(ctx, &m); err != nil {
					log.Printf("[ARCHIVE] Failed to archive match %s: %v", m.ID, err)
					continue
				}
			}
		}
	}
}

// Archive uploads one match's scoresheet and stamps archived_at.
func (a *ScoresheetArchiver) Archive(ctx context.Context, match *models.Match) error {
	var lineups []models.MatchLineup
	if err := a.DB.Where("match_id = ?", match.ID).Find(&lineups).Error; err != nil {
		return err
	}
	var games []models.MatchGame
	if err := a.DB.Where("match_id = ?", match.ID).Order("game_number ASC").Find(&games).Error; err != nil {
		return err
	}

	sheet := Scoresheet{Match: *match, Lineups: lineups, Games: games}
	body, err := json.MarshalIndent(sheet, "", "  ")
	if err != nil {
		return err
	}

	completed := time.Now().UTC()
	if match.CompletedAt != nil {
		completed = *match.CompletedAt
	}
	key := fmt.Sprintf("scoresheets/%d/%s-%s.json",
		completed.Year(),
		slug.Make(fmt.Sprintf("%s vs %s", match.HomeTeamID, match.AwayTeamID)),
		match.ID,
	)

	url, err := utils.UploadScoresheet(ctx, key, body)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := a.DB.Model(&models.Match{}).Where("id = ?", match.ID).
		Update("archived_at", now).Error; err != nil {
		return err
	}

	log.Printf("[ARCHIVE] Archived match %s -> %s", match.ID, url)
	return nil
}
