// Package dataset holds the raw observation table the pipeline runs over:
// CSV bootstrap at startup, live appends from the ingestion loop, and
// most-recent-window extraction at request time.
package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/airsense/pm-forecast-service/internal/schema"
)

// timeLayouts are accepted observation timestamp formats, tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// rawObservation is the flat JSON shape produced by the upstream collector.
// Numeric fields arrive as strings or numbers depending on the producer, so
// everything is taken as json.RawMessage-free strings via a lenient decode.
type rawObservation struct {
	Time    string   `json:"time"`
	Temp    *float64 `json:"temp"`
	Weather string   `json:"weather"`
	Wind    *float64 `json:"wind"`
	RH      *float64 `json:"RH"`
	P       *float64 `json:"P"`
	CO      *float64 `json:"co"`
	NO      *float64 `json:"no"`
	NO2     *float64 `json:"no2"`
	O3      *float64 `json:"o3"`
	SO2     *float64 `json:"so2"`
	NH3     *float64 `json:"nh3"`
}

// Observation is one parsed row of the observation table. Missing numeric
// readings are NaN; a missing weather description is the empty string.
type Observation struct {
	Time    time.Time
	Weather string
	Numeric map[string]float64 // keyed by schema numeric predictor names
}

// ParseObservation deserializes a collector JSON payload into an Observation.
// Absent numeric fields become NaN rather than errors; only an unparseable
// envelope or timestamp fails.
func ParseObservation(data []byte) (Observation, error) {
	var raw rawObservation
	if err := json.Unmarshal(data, &raw); err != nil {
		return Observation{}, fmt.Errorf("parse observation: %w", err)
	}
	ts, err := ParseTime(raw.Time)
	if err != nil {
		return Observation{}, fmt.Errorf("parse observation: %w", err)
	}

	obs := Observation{
		Time:    ts,
		Weather: strings.TrimSpace(raw.Weather),
		Numeric: make(map[string]float64, len(schema.NumericPredictors)),
	}
	fields := map[string]*float64{
		"temp": raw.Temp, "wind": raw.Wind, "RH": raw.RH, "P": raw.P,
		"co": raw.CO, "no": raw.NO, "no2": raw.NO2, "o3": raw.O3,
		"so2": raw.SO2, "nh3": raw.NH3,
	}
	for name, v := range fields {
		if v == nil {
			obs.Numeric[name] = math.NaN()
		} else {
			obs.Numeric[name] = *v
		}
	}
	return obs, nil
}

// ParseTime parses an observation timestamp, trying the accepted layouts in
// order.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseFloatOrNaN parses a numeric cell, returning NaN for anything that is
// not a number (empty cells, sentinels like "NA").
func parseFloatOrNaN(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
