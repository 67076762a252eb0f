package pipeline_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/airsense/pm-forecast-service/internal/artifact"
	"github.com/airsense/pm-forecast-service/internal/dataset"
	"github.com/airsense/pm-forecast-service/internal/frame"
	"github.com/airsense/pm-forecast-service/internal/model"
	"github.com/airsense/pm-forecast-service/internal/pipeline"
	"github.com/airsense/pm-forecast-service/internal/schema"
	"github.com/stretchr/testify/require"
)

var testBaseTime = time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

var testWeather = []string{"Clear", "Clouds", "Haze", "Rain"}

// makeTestFrame builds a deterministic hourly observation window: a daily
// cycle plus seeded noise, no missing values, no outliers. Target columns are
// left absent; the alignment stage adds them as missing.
func makeTestFrame(t *testing.T, n int) *frame.Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(7))

	times := make([]time.Time, n)
	weather := make([]string, n)
	numeric := map[string][]float64{}
	for _, name := range schema.NumericPredictors {
		numeric[name] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		ts := testBaseTime.Add(time.Duration(i) * time.Hour)
		times[i] = ts
		daily := math.Sin(2 * math.Pi * float64(ts.Hour()) / 24)

		numeric["temp"][i] = 15 + 8*daily + rng.NormFloat64()
		numeric["wind"][i] = math.Abs(3 + daily + rng.NormFloat64()*0.5)
		numeric["RH"][i] = 60 - 10*daily + rng.NormFloat64()*2
		numeric["P"][i] = 1013 + rng.NormFloat64()*2
		numeric["co"][i] = math.Abs(350 + 100*daily + rng.NormFloat64()*20)
		numeric["no"][i] = math.Abs(4 + 2*daily + rng.NormFloat64())
		numeric["no2"][i] = math.Abs(25 + 8*daily + rng.NormFloat64()*2)
		numeric["o3"][i] = math.Abs(55 - 15*daily + rng.NormFloat64()*3)
		numeric["so2"][i] = math.Abs(9 + 3*daily + rng.NormFloat64())
		numeric["nh3"][i] = math.Abs(6 + daily + rng.NormFloat64()*0.5)

		weather[i] = testWeather[(ts.Hour()/6)%len(testWeather)]
	}

	f := frame.New(n)
	require.NoError(t, f.SetTimestamp(schema.TimeColumn, times))
	require.NoError(t, f.SetCategorical(schema.WeatherColumn, weather))
	for _, name := range schema.NumericPredictors {
		require.NoError(t, f.SetNumeric(name, numeric[name]))
	}
	return f
}

// makeTestContext fits a consistent artifact set against the given frame:
// quartiles wide enough that clean data is never flagged, scaler bounds from
// the observed (skew-corrected) ranges, and simple rank maps and models.
func makeTestContext(t *testing.T, f *frame.Frame) *pipeline.Context {
	t.Helper()

	skewed := map[string]bool{}
	for _, name := range schema.SkewedColumns {
		skewed[name] = true
	}

	scaler := artifact.Scaler{Min: map[string]float64{}, Max: map[string]float64{}}
	outlier := artifact.Outlier{Q1: map[string]float64{}, Q3: map[string]float64{}}
	for _, name := range schema.NumericPredictors {
		c := f.Col(name)
		require.NotNil(t, c)
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range c.Floats {
			if skewed[name] {
				v = math.Log1p(v)
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		scaler.Min[name], scaler.Max[name] = lo, hi
		// Quartiles this wide keep outlier repair from touching clean data.
		outlier.Q1[name], outlier.Q3[name] = -1e6, 1e6
	}
	scaler.Min["year"], scaler.Max["year"] = 2025, 2025
	scaler.Min["month"], scaler.Max["month"] = 1, 12
	scaler.Min["day"], scaler.Max["day"] = 1, 31
	scaler.Min["dayofweek"], scaler.Max["dayofweek"] = 0, 6
	scaler.Min["hour"], scaler.Max["hour"] = 0, 23

	hourModes := map[int][]string{}
	for h := 0; h < 24; h++ {
		hourModes[h] = []string{testWeather[(h/6)%len(testWeather)]}
	}

	rankMaps := map[string]map[string]float64{}
	for _, target := range schema.Targets {
		m := map[string]float64{}
		for i, cat := range testWeather {
			m[cat] = float64(i + 1)
		}
		rankMaps[schema.WeatherColumn+"_"+target] = m
		scaler.Min[schema.WeatherColumn+"_"+target] = 1
		scaler.Max[schema.WeatherColumn+"_"+target] = float64(len(testWeather))
	}

	return &pipeline.Context{
		Artifacts: &artifact.Set{
			Imputer: artifact.Imputer{MostCommonPerHour: map[string]map[int][]string{
				schema.WeatherColumn: hourModes,
			}},
			Outlier: outlier,
			Rank:    artifact.Rank{RankMaps: rankMaps},
			Scaler:  scaler,
		},
		PM25: testModel("pm2_5", 20),
		PM10: testModel("pm10", 32),
	}
}

func testModel(name string, base float64) *model.Linear {
	steps := make([]model.Horizon, 3)
	for h := range steps {
		steps[h] = model.Horizon{
			Intercept: base + float64(h),
			Weights:   map[string]float64{"temp": 10, "hour": 2, "co_lag_1": 5},
		}
	}
	return &model.Linear{Name: name, Steps: steps}
}

// makeTestStore wraps a generated frame in a dataset store.
func makeTestStore(t *testing.T, n int) *dataset.Store {
	t.Helper()
	return dataset.NewStore(makeTestFrame(t, n))
}
