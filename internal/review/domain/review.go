package domain

import (
	"math"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is one user's rating of one stall. A user reviews a stall at most once.
// ReviewerName and ReviewerAvatar are display fields joined from the user when listed.
type Review struct {
	ID             string    `json:"id"`
	StallID        string    `json:"stallId"`
	UserID         string    `json:"userId"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment"`
	ReviewerName   string    `json:"reviewerName"`
	ReviewerAvatar string    `json:"reviewerAvatar"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Summary is the denormalized rating state stored on a stall.
// AverageRating is nil when there are no reviews.
type Summary struct {
	NumReviews    int      `json:"numReviews"`
	AverageRating *float64 `json:"averageRating"`
}

// ValidRating reports whether r is within MinRating..MaxRating.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// Summarize returns the count and the mean rounded to one decimal.
func Summarize(ratings []int) Summary {
	if len(ratings) == 0 {
		return Summary{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := Round1(float64(sum) / float64(len(ratings)))
	return Summary{NumReviews: len(ratings), AverageRating: &avg}
}

// Round1 rounds x to one decimal place, halves away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
