package report

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"nichescout/internal/research"
)

// Summary renders a terminal-friendly table of the top products plus
// aggregate statistics. Products must already be ranked best first.
func Summary(products []research.ScoredProduct, topN int) string {
	if len(products) == 0 {
		return "No products found."
	}
	if topN <= 0 || topN > len(products) {
		topN = len(products)
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString("PRODUCT OPPORTUNITY REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPRODUCT\tSCORE\tMENTIONS\tSENTIMENT\tNICHE")
	for i, p := range products[:topN] {
		name := p.Name
		if len(name) > 40 {
			name = name[:40]
		}
		fmt.Fprintf(w, "%d\t%s\t%.1f\t%d\t%.2f\t%s\n",
			i+1, name, p.OpportunityScore, p.DiscussionVolume,
			p.Sentiment.Polarity, p.Niche)
	}
	w.Flush()

	var positive, negative int
	var total float64
	for _, p := range products {
		total += p.OpportunityScore
		switch {
		case p.Sentiment.Polarity > 0:
			positive++
		case p.Sentiment.Polarity < 0:
			negative++
		}
	}

	b.WriteString("\n" + strings.Repeat("-", 60) + "\n")
	fmt.Fprintf(&b, "Total products analyzed: %d\n", len(products))
	fmt.Fprintf(&b, "Average opportunity score: %.1f\n", total/float64(len(products)))
	fmt.Fprintf(&b, "Products with positive sentiment: %d\n", positive)
	fmt.Fprintf(&b, "Products with negative sentiment: %d\n", negative)
	return b.String()
}
