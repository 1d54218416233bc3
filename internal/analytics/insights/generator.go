// Package insights turns a vendor report into plain-language improvement tips using a chat model.
package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sambhav-gg/StreetBites/internal/analytics/domain"
)

// Generator produces insight text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BuildPrompt renders the report as the instruction sent to the model.
func BuildPrompt(rep *domain.Report) string {
	var b strings.Builder
	b.WriteString("Namaste! Here is your stall performance report in simple words:\n\n")
	b.WriteString("Overall details:\n")
	fmt.Fprintf(&b, "- Total stalls: %d\n", rep.Summary.TotalStalls)
	fmt.Fprintf(&b, "- Total impressions (people who saw your stall): %d\n", rep.Summary.TotalImpressions)
	fmt.Fprintf(&b, "- Total reviews (people who shared their opinion): %d\n", rep.Summary.TotalReviews)
	fmt.Fprintf(&b, "- Average rating: %s\n\n", rating(rep.Summary.AverageRating))

	b.WriteString("Stall-wise details:\n")
	for _, s := range rep.Stalls {
		fmt.Fprintf(&b, "- Stall name: %s\n", s.Name)
		fmt.Fprintf(&b, "  Seen by: %d people\n", s.Impressions)
		fmt.Fprintf(&b, "  Reviews: %d\n", s.Reviews)
		fmt.Fprintf(&b, "  Average rating: %s\n", rating(s.AvgRating))
		fmt.Fprintf(&b, "  Category: %s\n\n", s.Category)
	}

	b.WriteString(`Please give simple, easy-to-understand tips in bullet points to help each stall owner get more
customers and improve. Explain it like you are talking to a local street vendor who does not know much
about online business, and mention each stall name in its suggestions. Keep the tips practical: how to
bring more people to see the stall, how to ask customers for reviews, how to make the stall look better,
and simple things to do today. Include tips about the stall page on the website, such as better images,
so that users click on the stall card. Keep it friendly, short, and in a simple Hindi-English mix if possible.
`)
	return b.String()
}

func rating(v *float64) string {
	if v == nil {
		return "not rated yet"
	}
	return fmt.Sprintf("%.2f", *v)
}
