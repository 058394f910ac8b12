package plotdata

import (
	"github.com/harrison/fedviz/internal/settings"
)

// CircadianFrom builds the day/night and chronogram request from s.
func CircadianFrom(s *settings.Settings) CircadianConfig {
	cfg := CircadianConfig{
		Metric:     s.CircValue,
		Schedule:   s.Schedule(),
		Error:      s.CircError,
		DateFilter: s.DateRange(),
	}
	if s.RetrievalThreshold != nil {
		cfg.RetrievalCutoff = *s.RetrievalThreshold
	}
	return cfg
}

// SummaryFrom builds the summary request from s.
func SummaryFrom(s *settings.Settings) SummaryConfig {
	cfg := DefaultSummaryConfig()
	cfg.Meals = s.MealPolicy()
	cfg.Schedule = s.Schedule()
	cfg.DateFilter = s.DateRange()
	return cfg
}

// PokesFrom builds the poke plot request from s.
func PokesFrom(s *settings.Settings) PokeOptions {
	return PokeOptions{
		Cumulative: s.PokeStyle != settings.StyleFrequency,
		Bin:        s.PokeBins.Std(),
		Correct:    s.PokeShowCorrect,
		Incorrect:  s.PokeShowError,
		Left:       s.PokeShowLeft,
		Right:      s.PokeShowRight,
		DateFilter: s.DateRange(),
	}
}

// RetrievalCutoff is the retrieval threshold of s, 0 when unset.
func RetrievalCutoff(s *settings.Settings) float64 {
	if s.RetrievalThreshold == nil {
		return 0
	}
	return *s.RetrievalThreshold
}
