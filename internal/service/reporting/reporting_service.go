// Package reporting renders weekly per-baby care summaries and exports
// them to a Google Sheet.
package reporting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
	repo "github.com/AndreasArnolfo/Babyrons/internal/repository/sheets"
)

const dateLayout = "2006-01-02"

// Snapshot is the read-only slice of the state container the reporting
// service needs.
type Snapshot interface {
	Babies() []models.Baby
	Events() []models.Event
}

// BabySummary aggregates one baby's care events over a period.
type BabySummary struct {
	BabyID        string
	BabyName      string
	BottleCount   int
	BottleTotalML int
	SleepHours    float64
	DiaperCount   int
	MedCount      int
	LatestWeight  *float64
}

// Service computes summaries and appends them to the export sheet.
type Service struct {
	snapshot     Snapshot
	repo         repo.Repository
	summaryRange string
	logger       *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(snapshot Snapshot, repository repo.Repository, summaryRange string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{snapshot: snapshot, repo: repository, summaryRange: summaryRange, logger: logger}
}

// Summarize aggregates the care events of the 7 days ending at end, one
// summary per baby.
func (s *Service) Summarize(end time.Time) []BabySummary {
	start := end.AddDate(0, 0, -7)
	startMs := start.UnixMilli()
	endMs := end.UnixMilli()

	babies := s.snapshot.Babies()
	byBaby := make(map[string]*BabySummary, len(babies))
	order := make([]string, 0, len(babies))
	for _, b := range babies {
		byBaby[b.ID] = &BabySummary{BabyID: b.ID, BabyName: b.Name}
		order = append(order, b.ID)
	}

	var latestGrowthAt = make(map[string]int64)
	for _, ev := range s.snapshot.Events() {
		base := ev.Base()
		if base.At < startMs || base.At > endMs {
			continue
		}
		summary, ok := byBaby[base.BabyID]
		if !ok {
			// Orphaned event: its baby is gone or not propagated yet.
			continue
		}
		switch v := ev.(type) {
		case *models.BottleEvent:
			summary.BottleCount++
			summary.BottleTotalML += v.ML
		case *models.SleepEvent:
			if v.Duration != nil {
				summary.SleepHours += float64(*v.Duration) / float64(time.Hour.Milliseconds())
			}
		case *models.DiaperEvent:
			summary.DiaperCount++
		case *models.MedEvent:
			summary.MedCount++
		case *models.GrowthEvent:
			if v.WeightKg != nil && base.At >= latestGrowthAt[base.BabyID] {
				latestGrowthAt[base.BabyID] = base.At
				summary.LatestWeight = v.WeightKg
			}
		}
	}

	out := make([]BabySummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byBaby[id])
	}
	return out
}

// Export appends one row per baby to the summary sheet.
func (s *Service) Export(ctx context.Context, end time.Time) error {
	summaries := s.Summarize(end)
	if len(summaries) == 0 {
		s.logger.Info("no babies to summarize, skipping export")
		return nil
	}
	week := end.Format(dateLayout)
	for _, summary := range summaries {
		weight := ""
		if summary.LatestWeight != nil {
			weight = fmt.Sprintf("%.2f", *summary.LatestWeight)
		}
		row := []interface{}{
			week,
			summary.BabyName,
			summary.BottleCount,
			summary.BottleTotalML,
			fmt.Sprintf("%.1f", summary.SleepHours),
			summary.DiaperCount,
			summary.MedCount,
			weight,
		}
		if err := s.repo.AppendRow(ctx, s.summaryRange, row); err != nil {
			return fmt.Errorf("export summary for %s: %w", summary.BabyName, err)
		}
	}
	s.logger.Info("weekly summary exported", zap.Int("babies", len(summaries)))
	return nil
}
