// Package report writes ranked discovery results to report artifacts.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"nichescout/internal/research"
)

// csvColumns is the export header, widest-signal columns first.
var csvColumns = []string{
	"name",
	"opportunity_score",
	"niche_type",
	"price",
	"rating",
	"related_topic",
	"category",
	"competition_count",
	"sentiment_polarity",
	"sentiment_ratio",
	"positive_mentions",
	"negative_mentions",
	"discussion_volume",
	"trend_score",
	"trend_direction",
	"url",
	"scored_at",
}

// CSVExporter writes products to a timestamped CSV file.
type CSVExporter struct {
	outputDir string
	clock     research.Clock
}

var _ research.Exporter = (*CSVExporter)(nil)

// NewCSV builds a CSV exporter rooted at outputDir.
func NewCSV(outputDir string, clock research.Clock) *CSVExporter {
	return &CSVExporter{outputDir: outputDir, clock: clock}
}

// Export writes the products and returns the created file path.
func (e *CSVExporter) Export(products []research.ScoredProduct) (string, error) {
	path, err := reportPath(e.outputDir, e.clock, "opportunities", "csv")
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range products {
		row := []string{
			p.Name,
			strconv.FormatFloat(p.OpportunityScore, 'f', 1, 64),
			string(p.Niche),
			strconv.FormatFloat(p.Price, 'f', 2, 64),
			strconv.FormatFloat(p.Rating, 'f', 1, 64),
			p.RelatedTopic,
			p.Category,
			strconv.Itoa(p.CompetitionCount),
			strconv.FormatFloat(p.Sentiment.Polarity, 'f', 3, 64),
			strconv.FormatFloat(p.Sentiment.Ratio, 'f', 3, 64),
			strconv.Itoa(p.Sentiment.PositiveCount),
			strconv.Itoa(p.Sentiment.NegativeCount),
			strconv.Itoa(p.DiscussionVolume),
			strconv.FormatFloat(p.TrendScore, 'f', 1, 64),
			string(p.TrendDirection),
			p.URL,
			p.ScoredAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close csv report: %w", err)
	}
	return path, nil
}

// JSONExporter writes products to a timestamped JSON file.
type JSONExporter struct {
	outputDir string
	clock     research.Clock
}

var _ research.Exporter = (*JSONExporter)(nil)

// NewJSON builds a JSON exporter rooted at outputDir.
func NewJSON(outputDir string, clock research.Clock) *JSONExporter {
	return &JSONExporter{outputDir: outputDir, clock: clock}
}

// Export writes the products and returns the created file path.
func (e *JSONExporter) Export(products []research.ScoredProduct) (string, error) {
	path, err := reportPath(e.outputDir, e.clock, "products", "json")
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create json report: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if products == nil {
		products = []research.ScoredProduct{}
	}
	if err := enc.Encode(products); err != nil {
		return "", fmt.Errorf("encode json report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close json report: %w", err)
	}
	return path, nil
}

func reportPath(outputDir string, clock research.Clock, prefix, ext string) (string, error) {
	if outputDir == "" {
		outputDir = "reports"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	stamp := clock.Now().Format("20060102_150405")
	return filepath.Join(outputDir, fmt.Sprintf("%s_%s.%s", prefix, stamp, ext)), nil
}
