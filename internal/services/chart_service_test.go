package services_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/tomanchart/backend/internal/currency"
	"github.com/tomanchart/backend/internal/period"
	"github.com/tomanchart/backend/internal/services"
)

var testNow = time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)

func newChartService(st *stubStore) *services.ChartService {
	svc := services.NewChartService(st, nil)
	svc.Now = func() time.Time { return testNow }
	return svc
}

func TestGetChartRawMode(t *testing.T) {
	t.Parallel()

	st := &stubStore{}
	st.seed(currency.USD, 500000, testNow.Add(-9*time.Hour)) // 09:00
	st.seed(currency.USD, 502000, testNow.Add(-3*time.Hour)) // 15:00
	st.seed(currency.EUR, 540000, testNow.Add(-time.Hour))   // other currency, excluded

	chart, err := newChartService(st).GetChart(context.Background(), currency.USD, period.Resolve("1D"))
	require.NoError(t, err)
	require.Equal(t, currency.USD, chart.Currency)
	require.Equal(t, "1D", chart.Period)
	require.Len(t, chart.Series, 2)
	require.Equal(t, int64(500000), chart.Series[0].Price)
	require.Equal(t, int64(502000), chart.Series[1].Price)
	require.True(t, chart.Series[0].Timestamp.Before(chart.Series[1].Timestamp))
	require.NotNil(t, chart.Latest)
	require.Equal(t, int64(502000), chart.Latest.Price)
}

func TestGetChartHourlyBucketMean(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	st := &stubStore{}
	st.seed(currency.EUR, 540000, base.Add(10*time.Minute))
	st.seed(currency.EUR, 541000, base.Add(25*time.Minute))
	st.seed(currency.EUR, 542000, base.Add(50*time.Minute))

	chart, err := newChartService(st).GetChart(context.Background(), currency.EUR, period.Resolve("1W"))
	require.NoError(t, err)
	require.Len(t, chart.Series, 1)
	require.Equal(t, base, chart.Series[0].Timestamp)
	require.Equal(t, int64(541000), chart.Series[0].Price)
}

func TestGetChartRoundsHalfUp(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	st := &stubStore{}
	st.seed(currency.USD, 101, base.Add(5*time.Minute))
	st.seed(currency.USD, 102, base.Add(10*time.Minute))

	chart, err := newChartService(st).GetChart(context.Background(), currency.USD, period.Resolve("1W"))
	require.NoError(t, err)
	require.Len(t, chart.Series, 1)
	// mean 101.5 rounds half-up to 102
	require.Equal(t, int64(102), chart.Series[0].Price)
}

func TestGetChartSixHourAlignment(t *testing.T) {
	t.Parallel()

	st := &stubStore{}
	st.seed(currency.GoldGram, 9000000, time.Date(2026, 8, 31, 5, 59, 0, 0, time.UTC))
	st.seed(currency.GoldGram, 9200000, time.Date(2026, 8, 31, 6, 1, 0, 0, time.UTC))

	chart, err := newChartService(st).GetChart(context.Background(), currency.GoldGram, period.Resolve("1M"))
	require.NoError(t, err)
	require.Len(t, chart.Series, 2)
	require.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), chart.Series[0].Timestamp)
	require.Equal(t, time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC), chart.Series[1].Timestamp)
}

func TestGetChartDailyBucketsOmitEmptyDays(t *testing.T) {
	t.Parallel()

	st := &stubStore{}
	st.seed(currency.GoldCoin, 42000000, time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC))
	st.seed(currency.GoldCoin, 43000000, time.Date(2026, 8, 20, 18, 0, 0, 0, time.UTC))
	// 9 day gap with no observations
	st.seed(currency.GoldCoin, 44000000, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))

	chart, err := newChartService(st).GetChart(context.Background(), currency.GoldCoin, period.Resolve("1Y"))
	require.NoError(t, err)
	require.Len(t, chart.Series, 2)
	require.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), chart.Series[0].Timestamp)
	require.Equal(t, int64(42500000), chart.Series[0].Price)
	require.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), chart.Series[1].Timestamp)
	require.Equal(t, int64(44000000), chart.Series[1].Price)
}

func TestGetChartWindowExcludesOldPoints(t *testing.T) {
	t.Parallel()

	st := &stubStore{}
	st.seed(currency.USD, 480000, testNow.Add(-48*time.Hour)) // outside 1D window
	st.seed(currency.USD, 500000, testNow.Add(-time.Hour))

	chart, err := newChartService(st).GetChart(context.Background(), currency.USD, period.Resolve("1D"))
	require.NoError(t, err)
	require.Len(t, chart.Series, 1)
	require.Equal(t, int64(500000), chart.Series[0].Price)
}

func TestGetChartEmptyWindowKeepsLatest(t *testing.T) {
	t.Parallel()

	st := &stubStore{}
	st.seed(currency.USD, 480000, testNow.Add(-72*time.Hour))

	chart, err := newChartService(st).GetChart(context.Background(), currency.USD, period.Resolve("1D"))
	require.NoError(t, err)
	require.Empty(t, chart.Series)
	require.NotNil(t, chart.Latest)
	require.Equal(t, int64(480000), chart.Latest.Price)
}

func TestGetChartNoDataAtAll(t *testing.T) {
	t.Parallel()

	chart, err := newChartService(&stubStore{}).GetChart(context.Background(), currency.EUR, period.Resolve("1D"))
	require.NoError(t, err)
	require.Empty(t, chart.Series)
	require.Nil(t, chart.Latest)
}

func TestGetChartIsIdempotent(t *testing.T) {
	t.Parallel()

	st := &stubStore{}
	st.seed(currency.USD, 500000, testNow.Add(-10*time.Hour))
	st.seed(currency.USD, 501000, testNow.Add(-5*time.Hour))
	svc := newChartService(st)

	first, err := svc.GetChart(context.Background(), currency.USD, period.Resolve("1W"))
	require.NoError(t, err)
	second, err := svc.GetChart(context.Background(), currency.USD, period.Resolve("1W"))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGetChartServesCachedResponse(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	st := &stubStore{}
	st.seed(currency.USD, 500000, testNow.Add(-time.Hour))

	svc := services.NewChartService(st, rdb)
	svc.Now = func() time.Time { return testNow }

	first, err := svc.GetChart(context.Background(), currency.USD, period.Resolve("1D"))
	require.NoError(t, err)
	require.Len(t, first.Series, 1)

	// New point lands, but the cached chart is still fresh
	st.seed(currency.USD, 501000, testNow.Add(-time.Minute))

	cached, err := svc.GetChart(context.Background(), currency.USD, period.Resolve("1D"))
	require.NoError(t, err)
	require.Len(t, cached.Series, 1)

	// After the TTL elapses the new point becomes visible
	mr.FastForward(time.Minute)

	fresh, err := svc.GetChart(context.Background(), currency.USD, period.Resolve("1D"))
	require.NoError(t, err)
	require.Len(t, fresh.Series, 2)
}

func TestGetLatestPrices(t *testing.T) {
	t.Parallel()

	st := &stubStore{}
	st.seed(currency.USD, 500000, testNow.Add(-time.Hour))
	st.seed(currency.USD, 502000, testNow.Add(-time.Minute))

	latest, err := newChartService(st).GetLatestPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, latest, 4)

	byCurrency := map[currency.Currency]services.LatestPrice{}
	for _, lp := range latest {
		byCurrency[lp.Currency] = lp
	}
	require.NotNil(t, byCurrency[currency.USD].Price)
	require.Equal(t, int64(502000), *byCurrency[currency.USD].Price)
	require.Nil(t, byCurrency[currency.EUR].Price)
	require.Nil(t, byCurrency[currency.GoldGram].Timestamp)
}
