package stage

import (
	"github.com/airsense/pm-forecast-service/internal/artifact"
	"github.com/airsense/pm-forecast-service/internal/frame"
)

// RankEncoder turns categorical predictors numeric: for every
// (categorical, target) pair it emits a column "<cat>_<target>" holding the
// fitted rank of each category. Unseen or missing categories receive the mode
// of the map's rank values (0 when the map is empty). Source categorical
// columns are dropped once all derived columns exist.
type RankEncoder struct {
	catCols []string
	targets []string
	maps    map[string]map[string]float64
}

// NewRankEncoder creates a RankEncoder from the fitted rank maps.
func NewRankEncoder(catCols, targets []string, fitted artifact.Rank) *RankEncoder {
	return &RankEncoder{catCols: catCols, targets: targets, maps: fitted.RankMaps}
}

func (re *RankEncoder) Name() string { return "rank_encode" }

func (re *RankEncoder) Transform(f *frame.Frame) (*frame.Frame, error) {
	for _, target := range re.targets {
		for _, cat := range re.catCols {
			c := f.Col(cat)
			if c == nil || c.Kind != frame.Categorical {
				continue
			}
			derived := cat + "_" + target
			rankMap := re.maps[derived]
			fallback := rankValueMode(rankMap)

			vals := make([]float64, len(c.Strings))
			for i, v := range c.Strings {
				if r, ok := rankMap[v]; ok && v != "" {
					vals[i] = r
				} else {
					vals[i] = fallback
				}
			}
			if err := f.SetNumeric(derived, vals); err != nil {
				return nil, err
			}
		}
	}
	for _, cat := range re.catCols {
		f.Drop(cat)
	}
	return f, nil
}

// rankValueMode returns the most frequent rank value in the map, breaking
// ties toward the smallest value, or 0 for an empty map.
func rankValueMode(m map[string]float64) float64 {
	if len(m) == 0 {
		return 0
	}
	counts := make(map[float64]int, len(m))
	for _, r := range m {
		counts[r]++
	}
	var best float64
	bestCount := -1
	for r, c := range counts {
		if c > bestCount || (c == bestCount && r < best) {
			best, bestCount = r, c
		}
	}
	return best
}
