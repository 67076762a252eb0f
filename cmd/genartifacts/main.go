// Command genartifacts generates a synthetic hourly observation dataset and a
// matching artifact set (imputer modes, outlier quartiles, rank maps, scaler
// bounds, linear models) for local development and the test suites. The
// artifacts are fitted against the generated data so a pipeline run over the
// dataset produces a fully populated feature row.
//
// Usage:
//
//	go run ./cmd/genartifacts \
//	  -artifact-dir artifacts \
//	  -data-out data/observations.csv \
//	  -rows 6000
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/airsense/pm-forecast-service/internal/artifact"
	"github.com/airsense/pm-forecast-service/internal/model"
	"github.com/airsense/pm-forecast-service/internal/pipeline"
	"github.com/airsense/pm-forecast-service/internal/schema"
	"gonum.org/v1/gonum/stat"
)

var baseTime = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

var weatherStates = []string{"Clear", "Clouds", "Haze", "Rain"}

type table struct {
	times   []time.Time
	weather []string
	numeric map[string][]float64 // predictors and targets
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	artifactDir := flag.String("artifact-dir", "artifacts", "output directory for artifact JSON files")
	dataOut := flag.String("data-out", "data/observations.csv", "output path for the observation CSV")
	rows := flag.Int("rows", 6000, "number of hourly rows to generate")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	if *rows < 100 {
		return fmt.Errorf("-rows must be at least 100, got %d", *rows)
	}

	rng := rand.New(rand.NewSource(*seed))
	t := generate(rng, *rows)

	if err := writeCSV(*dataOut, t); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	log.Printf("wrote dataset: %s (%d rows)", *dataOut, *rows)

	if err := os.MkdirAll(*artifactDir, 0o755); err != nil {
		return err
	}
	if err := writeArtifacts(*artifactDir, t); err != nil {
		return fmt.Errorf("writing artifacts: %w", err)
	}
	if err := writeModels(*artifactDir); err != nil {
		return fmt.Errorf("writing models: %w", err)
	}
	log.Printf("wrote artifacts: %s", *artifactDir)
	return nil
}

// generate builds an hourly series with a daily cycle, noise, and a sprinkling
// of missing values so the imputation stage has work to do.
func generate(rng *rand.Rand, rows int) table {
	t := table{
		times:   make([]time.Time, rows),
		weather: make([]string, rows),
		numeric: map[string][]float64{},
	}
	for _, name := range schema.NumericPredictors {
		t.numeric[name] = make([]float64, rows)
	}
	for _, name := range schema.Targets {
		t.numeric[name] = make([]float64, rows)
	}

	for i := 0; i < rows; i++ {
		ts := baseTime.Add(time.Duration(i) * time.Hour)
		t.times[i] = ts
		hour := float64(ts.Hour())
		daily := math.Sin(2 * math.Pi * hour / 24)

		t.numeric["temp"][i] = 15 + 8*daily + rng.NormFloat64()*2
		t.numeric["wind"][i] = math.Abs(3 + 1.5*daily + rng.NormFloat64())
		t.numeric["RH"][i] = clamp(60-15*daily+rng.NormFloat64()*5, 5, 100)
		t.numeric["P"][i] = 1013 + rng.NormFloat64()*4
		t.numeric["co"][i] = math.Abs(350 + 150*daily + rng.NormFloat64()*60)
		t.numeric["no"][i] = math.Abs(4 + 3*daily + rng.NormFloat64()*2)
		t.numeric["no2"][i] = math.Abs(25 + 12*daily + rng.NormFloat64()*6)
		t.numeric["o3"][i] = math.Abs(55 - 20*daily + rng.NormFloat64()*10)
		t.numeric["so2"][i] = math.Abs(9 + 4*daily + rng.NormFloat64()*3)
		t.numeric["nh3"][i] = math.Abs(6 + 2*daily + rng.NormFloat64()*1.5)

		t.weather[i] = weatherFor(ts.Hour(), rng)

		pm := math.Abs(40 + 20*daily + rng.NormFloat64()*8)
		for h := 1; h <= 3; h++ {
			drift := float64(h) * rng.NormFloat64()
			t.numeric[fmt.Sprintf("pm2_5_next%d", h)][i] = math.Abs(pm + drift)
			t.numeric[fmt.Sprintf("pm10_next%d", h)][i] = math.Abs(pm*1.6 + drift)
		}

		// Punch occasional holes: a missing gas reading and a missing weather
		// label every so often.
		if i%97 == 53 {
			t.numeric["co"][i] = math.NaN()
		}
		if i%131 == 40 {
			t.weather[i] = ""
		}
	}
	return t
}

func weatherFor(hour int, rng *rand.Rand) string {
	if rng.Float64() < 0.15 {
		return weatherStates[rng.Intn(len(weatherStates))]
	}
	switch {
	case hour >= 6 && hour < 12:
		return "Clear"
	case hour >= 12 && hour < 18:
		return "Clouds"
	case hour >= 18 && hour < 22:
		return "Haze"
	default:
		return "Rain"
	}
}

func writeCSV(path string, t table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(schema.Ordered); err != nil {
		return err
	}
	for i := range t.times {
		rec := make([]string, len(schema.Ordered))
		for j, name := range schema.Ordered {
			switch name {
			case schema.TimeColumn:
				rec[j] = t.times[i].Format("2006-01-02 15:04:05")
			case schema.WeatherColumn:
				rec[j] = t.weather[i]
			default:
				v := t.numeric[name][i]
				if math.IsNaN(v) {
					rec[j] = ""
				} else {
					rec[j] = strconv.FormatFloat(v, 'f', 4, 64)
				}
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeArtifacts(dir string, t table) error {
	imp := artifact.Imputer{MostCommonPerHour: map[string]map[int][]string{
		schema.WeatherColumn: hourlyModes(t),
	}}
	if err := artifact.WriteJSON(filepath.Join(dir, artifact.ImputerFile), imp); err != nil {
		return err
	}

	out := artifact.Outlier{Q1: map[string]float64{}, Q3: map[string]float64{}}
	for _, name := range schema.NumericPredictors {
		q1, q3 := quartiles(t.numeric[name])
		out.Q1[name] = q1
		out.Q3[name] = q3
	}
	if err := artifact.WriteJSON(filepath.Join(dir, artifact.OutlierFile), out); err != nil {
		return err
	}

	rank := artifact.Rank{RankMaps: map[string]map[string]float64{}}
	for _, target := range schema.Targets {
		rank.RankMaps[schema.WeatherColumn+"_"+target] = rankMap(t, target)
	}
	if err := artifact.WriteJSON(filepath.Join(dir, artifact.RankFile), rank); err != nil {
		return err
	}

	return artifact.WriteJSON(filepath.Join(dir, artifact.ScalerFile), scalerBounds(t))
}

// hourlyModes ranks weather categories by frequency within each hour of day.
func hourlyModes(t table) map[int][]string {
	counts := map[int]map[string]int{}
	for i, ts := range t.times {
		if t.weather[i] == "" {
			continue
		}
		h := ts.Hour()
		if counts[h] == nil {
			counts[h] = map[string]int{}
		}
		counts[h][t.weather[i]]++
	}
	modes := map[int][]string{}
	for h, byCat := range counts {
		cats := make([]string, 0, len(byCat))
		for c := range byCat {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool {
			if byCat[cats[i]] != byCat[cats[j]] {
				return byCat[cats[i]] > byCat[cats[j]]
			}
			return cats[i] < cats[j]
		})
		modes[h] = cats
	}
	return modes
}

func quartiles(vals []float64) (q1, q3 float64) {
	clean := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	sort.Float64s(clean)
	q1 = stat.Quantile(0.25, stat.Empirical, clean, nil)
	q3 = stat.Quantile(0.75, stat.Empirical, clean, nil)
	return q1, q3
}

// rankMap orders categories by mean target value and assigns ranks 1..k.
func rankMap(t table, target string) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]float64{}
	for i, cat := range t.weather {
		v := t.numeric[target][i]
		if cat == "" || math.IsNaN(v) {
			continue
		}
		sums[cat] += v
		counts[cat]++
	}
	cats := make([]string, 0, len(sums))
	for c := range sums {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		return sums[cats[i]]/counts[cats[i]] < sums[cats[j]]/counts[cats[j]]
	})
	m := map[string]float64{}
	for i, c := range cats {
		m[c] = float64(i + 1)
	}
	return m
}

// scalerBounds fits min/max per feature column in the space the scaler sees:
// skewed gases after log1p, rank and time features over their value ranges.
func scalerBounds(t table) artifact.Scaler {
	s := artifact.Scaler{Min: map[string]float64{}, Max: map[string]float64{}}

	skewed := map[string]bool{}
	for _, name := range schema.SkewedColumns {
		skewed[name] = true
	}
	for _, name := range schema.NumericPredictors {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range t.numeric[name] {
			if math.IsNaN(v) {
				continue
			}
			if skewed[name] {
				v = math.Log1p(v)
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		s.Min[name], s.Max[name] = lo, hi
	}

	last := t.times[len(t.times)-1]
	s.Min["year"], s.Max["year"] = float64(baseTime.Year()), float64(last.Year())
	s.Min["month"], s.Max["month"] = 1, 12
	s.Min["day"], s.Max["day"] = 1, 31
	s.Min["dayofweek"], s.Max["dayofweek"] = 0, 6
	s.Min["hour"], s.Max["hour"] = 0, 23

	for _, target := range schema.Targets {
		s.Min[schema.WeatherColumn+"_"+target] = 1
		s.Max[schema.WeatherColumn+"_"+target] = float64(len(weatherStates))
	}
	return s
}

// writeModels emits simple linear models over scaled base features. Real
// deployments replace these with the exported fitting-phase regressors.
func writeModels(dir string) error {
	mk := func(name string, base float64) model.Linear {
		steps := make([]model.Horizon, 3)
		for h := range steps {
			steps[h] = model.Horizon{
				Intercept: base + float64(h)*1.5,
				Weights: map[string]float64{
					"temp":     12,
					"RH":       -6,
					"co":       18,
					"hour":     4,
					"co_lag_1": 5,
				},
			}
		}
		return model.Linear{Name: name, Steps: steps}
	}

	if err := artifact.WriteJSON(filepath.Join(dir, pipeline.PM25ModelFile), mk("pm2_5", 20)); err != nil {
		return err
	}
	return artifact.WriteJSON(filepath.Join(dir, pipeline.PM10ModelFile), mk("pm10", 32))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
