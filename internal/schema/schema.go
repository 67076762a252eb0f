// Package schema fixes the observation table layout the pipeline and the
// fitted artifacts were built against. The column set and order are part of
// the model contract: downstream regressors were fit on features derived from
// exactly these columns.
package schema

import "github.com/airsense/pm-forecast-service/internal/frame"

// TimeColumn is the single timestamp column.
const TimeColumn = "time"

// WeatherColumn is the single categorical predictor.
const WeatherColumn = "weather"

// Ordered is the fixed 18-column schema, in the order the fitted pipeline
// expects: time, weather predictors, pollutant readings, forecast targets.
var Ordered = []string{
	"time", "temp", "weather", "wind", "RH", "P",
	"co", "no", "no2", "o3", "so2", "nh3",
	"pm2_5_next1", "pm10_next1", "pm2_5_next2", "pm10_next2", "pm2_5_next3", "pm10_next3",
}

// NumericPredictors are the inherently non-negative numeric input columns.
var NumericPredictors = []string{"temp", "wind", "RH", "P", "co", "no", "no2", "o3", "so2", "nh3"}

// CategoricalPredictors are the categorical input columns.
var CategoricalPredictors = []string{WeatherColumn}

// Targets are the six forecast target columns, removed from the feature
// vector before it reaches the models.
var Targets = []string{"pm2_5_next1", "pm10_next1", "pm2_5_next2", "pm10_next2", "pm2_5_next3", "pm10_next3"}

// SkewedColumns are the right-skewed gas concentrations that receive the
// log1p correction.
var SkewedColumns = []string{"co", "no", "no2", "so2", "nh3"}

// KindOf returns the value kind for a schema column. Unknown names default to
// numeric, which is what every derived (lag, rolling, rank, time) column is.
func KindOf(name string) frame.Kind {
	switch name {
	case TimeColumn:
		return frame.Timestamp
	case WeatherColumn:
		return frame.Categorical
	default:
		return frame.Numeric
	}
}

// IsTarget reports whether name is one of the forecast target columns.
func IsTarget(name string) bool {
	for _, t := range Targets {
		if t == name {
			return true
		}
	}
	return false
}
