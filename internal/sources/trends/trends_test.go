package trends

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nichescout/internal/clock/system"
	"nichescout/internal/research"
	"nichescout/internal/throttle"
)

func testRegistry(t *testing.T) *throttle.Registry {
	t.Helper()
	return throttle.NewRegistry(throttle.LimiterConfig{
		BaseDelay: time.Millisecond,
		MinDelay:  time.Millisecond,
	}, nil, system.New(), nil)
}

func TestTrendingWithoutHeadlessUsesFallback(t *testing.T) {
	t.Parallel()

	source := New(Config{Headless: false}, testRegistry(t), nil)
	defer source.Close()

	signals, err := source.Trending(context.Background(), []string{"pets"}, 5)
	require.NoError(t, err)
	require.Len(t, signals, 5)
	require.Equal(t, Fallback([]string{"pets"}, 5), signals)
}

func TestFallbackDeterministic(t *testing.T) {
	t.Parallel()

	first := Fallback(nil, 15)
	second := Fallback(nil, 15)
	require.Equal(t, first, second)
	require.Len(t, first, 15)
}

func TestFallbackHonorsLimit(t *testing.T) {
	t.Parallel()

	signals := Fallback([]string{"technology"}, 3)
	require.Len(t, signals, 3)
	for _, signal := range signals {
		require.Equal(t, "technology", signal.Category)
		require.Equal(t, float64(fallbackScore), signal.Score)
		require.Equal(t, research.TrendRising, signal.Direction)
	}
}

func TestFallbackSkipsUnknownCategory(t *testing.T) {
	t.Parallel()

	signals := Fallback([]string{"cryptids", "pets"}, 50)
	require.NotEmpty(t, signals)
	for _, signal := range signals {
		require.Equal(t, "pets", signal.Category)
	}
}

func TestFallbackCaseInsensitiveCategory(t *testing.T) {
	t.Parallel()

	require.Equal(t, Fallback([]string{"pets"}, 3), Fallback([]string{"Pets"}, 3))
}

func TestFallbackEmptyCategoriesCoversAll(t *testing.T) {
	t.Parallel()

	signals := Fallback(nil, 1000)
	categories := make(map[string]struct{})
	for _, signal := range signals {
		categories[signal.Category] = struct{}{}
	}
	require.Len(t, categories, len(fallbackKeywords))
}

func TestParseTrendingExtractsTopics(t *testing.T) {
	t.Parallel()

	html := `<html><body><table>
	<tr role="row"><td>1</td><td><div>espresso machine</div><div>200K+ searches</div></td><td>Active</td></tr>
	<tr role="row"><td>2</td><td><div>cat water fountain</div><div>50K+ searches</div></td><td>Active</td></tr>
	<tr role="row"><td>3</td><td><div>Espresso Machine</div></td><td>Active</td></tr>
	<tr role="row"><td>4</td><td><div>  </div></td><td>Active</td></tr>
	</table></body></html>`

	signals, err := parseTrending(html, 10)
	require.NoError(t, err)
	require.Len(t, signals, 2, "duplicates and blank rows are dropped")
	require.Equal(t, "espresso machine", signals[0].Topic)
	require.Equal(t, research.TrendRising, signals[0].Direction)
	require.Equal(t, "cat water fountain", signals[1].Topic)
}

func TestParseTrendingHonorsLimit(t *testing.T) {
	t.Parallel()

	html := `<html><body><table>
	<tr role="row"><td>1</td><td><div>alpha</div></td></tr>
	<tr role="row"><td>2</td><td><div>beta</div></td></tr>
	<tr role="row"><td>3</td><td><div>gamma</div></td></tr>
	</table></body></html>`

	signals, err := parseTrending(html, 2)
	require.NoError(t, err)
	require.Len(t, signals, 2)
}

func TestParseTrendingEmptyPage(t *testing.T) {
	t.Parallel()

	signals, err := parseTrending("<html><body></body></html>", 10)
	require.NoError(t, err)
	require.Empty(t, signals)
}
