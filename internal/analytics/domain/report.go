// Package domain holds the vendor analytics report.
package domain

import (
	"math"
	"time"
)

// StallStats are the raw counters for one stall. AvgRating is the unrounded mean, nil when unrated.
type StallStats struct {
	ID          string
	Name        string
	City        string
	Category    string
	Impressions int
	Reviews     int
	AvgRating   *float64
	CreatedAt   time.Time
}

// StallReport is one row of the vendor report.
type StallReport struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Impressions int       `json:"impressions"`
	Reviews     int       `json:"reviews"`
	AvgRating   *float64  `json:"avgRating"`
	City        string    `json:"city"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Summary totals the vendor's stalls. AverageRating is the mean of rated stalls' averages.
type Summary struct {
	TotalStalls      int      `json:"totalStalls"`
	TotalImpressions int      `json:"totalImpressions"`
	TotalReviews     int      `json:"totalReviews"`
	AverageRating    *float64 `json:"averageRating"`
}

// Report is the full vendor analytics response.
type Report struct {
	Summary  Summary       `json:"summary"`
	Stalls   []StallReport `json:"stalls"`
	Insights string        `json:"insights"`
}

// BuildReport turns raw stats into a report with averages rounded to two decimals. Insights are left empty.
func BuildReport(stats []StallStats) *Report {
	rep := &Report{Stalls: make([]StallReport, 0, len(stats))}
	var ratingSum float64
	rated := 0
	for _, s := range stats {
		row := StallReport{
			ID:          s.ID,
			Name:        s.Name,
			Impressions: s.Impressions,
			Reviews:     s.Reviews,
			City:        s.City,
			Category:    s.Category,
			CreatedAt:   s.CreatedAt,
		}
		if s.AvgRating != nil {
			avg := Round2(*s.AvgRating)
			row.AvgRating = &avg
			ratingSum += *s.AvgRating
			rated++
		}
		rep.Summary.TotalImpressions += s.Impressions
		rep.Summary.TotalReviews += s.Reviews
		rep.Stalls = append(rep.Stalls, row)
	}
	rep.Summary.TotalStalls = len(stats)
	if rated > 0 {
		avg := Round2(ratingSum / float64(rated))
		rep.Summary.AverageRating = &avg
	}
	return rep
}

// Round2 rounds x to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
