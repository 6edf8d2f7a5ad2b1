package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nichescout/internal/research"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func sampleProducts() []research.ScoredProduct {
	return []research.ScoredProduct{
		{
			CandidateProduct: research.CandidateProduct{
				Name:             "Espresso Tamper Holder",
				RelatedTopic:     "espresso machine",
				Category:         "shopping",
				Price:            19.99,
				Rating:           4.6,
				URL:              "https://example.com/item",
				CompetitionCount: 40,
				Sentiment: research.AggregateSentiment{
					Polarity: 0.673, PositiveCount: 3, NegativeCount: 1,
					Ratio: 0.75, Observations: 4,
				},
				TrendScore:       80,
				TrendDirection:   research.TrendRising,
				DiscussionVolume: 4,
				Niche:            research.NicheAccessory,
			},
			OpportunityScore: 92.5,
			ScoredAt:         time.Unix(1700000000, 0).UTC(),
		},
		{
			CandidateProduct: research.CandidateProduct{
				Name:             "Espresso Machine Pro",
				CompetitionCount: 9000,
				Sentiment:        research.AggregateSentiment{Ratio: 0.5},
				TrendScore:       80,
				TrendDirection:   research.TrendRising,
			},
			OpportunityScore: 55.2,
			ScoredAt:         time.Unix(1700000000, 0).UTC(),
		},
	}
}

func TestCSVExport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clock := fixedClock{now: time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)}

	path, err := NewCSV(dir, clock).Export(sampleProducts())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "opportunities_20260825_103000.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two rows")
	require.Equal(t, csvColumns, records[0])

	first := records[1]
	require.Equal(t, "Espresso Tamper Holder", first[0])
	require.Equal(t, "92.5", first[1])
	require.Equal(t, "accessory", first[2])
	require.Equal(t, "19.99", first[3])
	require.Equal(t, "0.673", first[8])
	require.Equal(t, "rising", first[14])
}

func TestCSVExportEmptySet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clock := fixedClock{now: time.Unix(1700000000, 0).UTC()}

	path, err := NewCSV(dir, clock).Export(nil)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "header only")
}

func TestJSONExportRoundTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clock := fixedClock{now: time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)}
	products := sampleProducts()

	path, err := NewJSON(dir, clock).Export(products)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "products_20260825_103000.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []research.ScoredProduct
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, products[0].Name, decoded[0].Name)
	require.Equal(t, products[0].OpportunityScore, decoded[0].OpportunityScore)
	require.Equal(t, products[0].Sentiment, decoded[0].Sentiment)
}

func TestJSONExportNilProductsWritesEmptyArray(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clock := fixedClock{now: time.Unix(1700000000, 0).UTC()}

	path, err := NewJSON(dir, clock).Export(nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, "[]", string(raw))
}

func TestExportCreatesOutputDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "reports")
	clock := fixedClock{now: time.Unix(1700000000, 0).UTC()}

	_, err := NewCSV(dir, clock).Export(nil)
	require.NoError(t, err)
	require.DirExists(t, dir)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	out := Summary(sampleProducts(), 20)
	require.Contains(t, out, "PRODUCT OPPORTUNITY REPORT")
	require.Contains(t, out, "Espresso Tamper Holder")
	require.Contains(t, out, "92.5")
	require.Contains(t, out, "Total products analyzed: 2")
	require.Contains(t, out, "Products with positive sentiment: 1")
}

func TestSummaryEmpty(t *testing.T) {
	t.Parallel()

	require.Equal(t, "No products found.", Summary(nil, 20))
}

func TestSummaryTruncatesToTopN(t *testing.T) {
	t.Parallel()

	products := sampleProducts()
	out := Summary(products, 1)
	require.Contains(t, out, "Espresso Tamper Holder")
	require.NotContains(t, out, "Espresso Machine Pro")
	require.Contains(t, out, "Total products analyzed: 2",
		"statistics cover the full set even when the table is truncated")
}

func TestCSVRowCountMatchesInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clock := fixedClock{now: time.Unix(1700000000, 0).UTC()}

	products := sampleProducts()
	path, err := NewCSV(dir, clock).Export(products)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(products)+1)
}
