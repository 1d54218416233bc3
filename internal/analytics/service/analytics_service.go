// Package service builds vendor analytics reports.
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/Sambhav-gg/StreetBites/internal/analytics/domain"
	"github.com/Sambhav-gg/StreetBites/internal/analytics/insights"
)

var tracer = otel.Tracer("github.com/Sambhav-gg/StreetBites/internal/analytics/service")

// StatsRepo reads per-stall counters.
type StatsRepo interface {
	StatsByOwner(ctx context.Context, ownerID string) ([]domain.StallStats, error)
}

// AnalyticsService assembles the vendor report.
type AnalyticsService struct {
	stats     StatsRepo
	generator insights.Generator
	log       zerolog.Logger
}

// NewAnalyticsService returns an AnalyticsService. generator may be nil; then insights are empty.
func NewAnalyticsService(stats StatsRepo, generator insights.Generator, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{stats: stats, generator: generator, log: log}
}

// VendorReport returns the report for the vendor's stalls. Insight generation failure is logged
// and leaves Insights empty.
func (s *AnalyticsService) VendorReport(ctx context.Context, ownerID string) (*domain.Report, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.VendorReport")
	defer span.End()

	stats, err := s.stats.StatsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load stall stats: %w", err)
	}
	rep := domain.BuildReport(stats)
	if len(rep.Stalls) == 0 || s.generator == nil {
		return rep, nil
	}
	text, err := s.generator.Generate(ctx, insights.BuildPrompt(rep))
	if err != nil {
		s.log.Warn().Err(err).Str("owner_id", ownerID).Msg("analytics: insights generation failed")
		return rep, nil
	}
	rep.Insights = text
	return rep, nil
}
