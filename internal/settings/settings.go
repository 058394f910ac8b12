// Package settings holds every tunable chart parameter and persists it as a
// two-column Setting,Values table.
package settings

import (
	"fmt"
	"time"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/average"
	"github.com/harrison/fedviz/internal/breakpoint"
	"github.com/harrison/fedviz/internal/daynight"
	"github.com/harrison/fedviz/internal/meals"
)

// Settings is the full option table. Keys match the column names of
// settings files written by earlier tools.
type Settings struct {
	DateFilter      bool       `yaml:"date_filter_val" json:"date_filter_val"`
	DateFilterStart *time.Time `yaml:"date_filter_start" json:"date_filter_start"`
	DateFilterEnd   *time.Time `yaml:"date_filter_end" json:"date_filter_end"`

	ShadeDark bool `yaml:"shade_dark" json:"shade_dark"`
	LightsOn  Hour `yaml:"lights_on" json:"lights_on"`
	LightsOff Hour `yaml:"lights_off" json:"lights_off"`

	AllGroups      bool `yaml:"allgroups" json:"allgroups"`
	AbsoluteGroups bool `yaml:"abs_group" json:"abs_group"`
	SkipDuplicates bool `yaml:"skip_duplicates" json:"skip_duplicates"`
	MissingWarning bool `yaml:"weirdwarn" json:"weirdwarn"`

	PelletValues string   `yaml:"pellet_values" json:"pellet_values"`
	PelletBins   Duration `yaml:"pellet_bins" json:"pellet_bins"`
	PelletColor  string   `yaml:"pellet_color" json:"pellet_color"`
	PelletAlign  bool     `yaml:"pellet_align" json:"pellet_align"`

	AverageError      average.ErrorKind   `yaml:"average_error" json:"average_error"`
	AverageBins       Duration            `yaml:"average_bins" json:"average_bins"`
	AverageMethod     aggregate.Alignment `yaml:"average_method" json:"average_method"`
	AverageAlignStart Hour                `yaml:"average_align_start" json:"average_align_start"`
	AverageAlignDays  int                 `yaml:"average_align_days" json:"average_align_days"`

	CircValue     aggregate.Metric  `yaml:"circ_value" json:"circ_value"`
	CircError     average.ErrorKind `yaml:"circ_error" json:"circ_error"`
	CircShowIndvl bool              `yaml:"circ_show_indvl" json:"circ_show_indvl"`

	KDE  bool `yaml:"kde" json:"kde"`
	LogX bool `yaml:"logx" json:"logx"`

	NormMeals         bool `yaml:"norm_meals" json:"norm_meals"`
	MealPelletMinimum int  `yaml:"meal_pellet_minimum" json:"meal_pellet_minimum"`
	MealDuration      int  `yaml:"meal_duration" json:"meal_duration"`

	RetrievalThreshold *float64 `yaml:"retrieval_threshold" json:"retrieval_threshold"`
	PokeTimeCutoff     *float64 `yaml:"poketime_cutoff" json:"poketime_cutoff"`

	PokeStyle       string           `yaml:"poke_style" json:"poke_style"`
	PokeBins        Duration         `yaml:"poke_bins" json:"poke_bins"`
	PokeShowCorrect bool             `yaml:"poke_show_correct" json:"poke_show_correct"`
	PokeShowError   bool             `yaml:"poke_show_error" json:"poke_show_error"`
	PokeShowLeft    bool             `yaml:"poke_show_left" json:"poke_show_left"`
	PokeShowRight   bool             `yaml:"poke_show_right" json:"poke_show_right"`
	BiasStyle       aggregate.Metric `yaml:"bias_style" json:"bias_style"`
	DynamicColor    bool             `yaml:"dynamic_color" json:"dynamic_color"`

	BreakStyle     breakpoint.Style  `yaml:"break_style" json:"break_style"`
	BreakHours     int               `yaml:"break_hours" json:"break_hours"`
	BreakMins      int               `yaml:"break_mins" json:"break_mins"`
	BreakError     average.ErrorKind `yaml:"break_error" json:"break_error"`
	BreakShowIndvl bool              `yaml:"break_show_indvl" json:"break_show_indvl"`

	LoadLastUsed bool `yaml:"load_last_used" json:"load_last_used"`
}

// Pellet and poke plot styles.
const (
	StyleCumulative = "Cumulative"
	StyleFrequency  = "Frequency"
)

// Default returns the settings used when no file is found.
func Default() *Settings {
	return &Settings{
		LightsOn:          7,
		LightsOff:         19,
		ShadeDark:         true,
		SkipDuplicates:    true,
		MissingWarning:    true,
		PelletValues:      StyleCumulative,
		PelletBins:        Duration(time.Hour),
		PelletColor:       "C0",
		AverageError:      average.SEM,
		AverageBins:       Duration(time.Hour),
		AverageMethod:     aggregate.Calendar,
		AverageAlignStart: 7,
		AverageAlignDays:  3,
		CircValue:         aggregate.Pellets,
		CircError:         average.SEM,
		CircShowIndvl:     true,
		MealPelletMinimum: 1,
		MealDuration:      1,
		PokeStyle:         StyleCumulative,
		PokeBins:          Duration(time.Hour),
		PokeShowCorrect:   true,
		PokeShowError:     true,
		BiasStyle:         aggregate.CorrectPercent,
		BreakStyle:        breakpoint.Pellets,
		BreakHours:        1,
		BreakError:        average.SEM,
		BreakShowIndvl:    true,
	}
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	if s.LightsOn < 0 || s.LightsOn > 23 || s.LightsOff < 0 || s.LightsOff > 23 {
		return fmt.Errorf("lights on/off must be hours 0-23")
	}
	for name, d := range map[string]Duration{"pellet_bins": s.PelletBins, "average_bins": s.AverageBins, "poke_bins": s.PokeBins} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if s.AverageAlignDays < 1 {
		return fmt.Errorf("average_align_days must be at least 1")
	}
	if s.MealPelletMinimum < 1 {
		return fmt.Errorf("meal_pellet_minimum must be at least 1")
	}
	if s.MealDuration < 0 || s.BreakHours < 0 || s.BreakMins < 0 {
		return fmt.Errorf("meal_duration, break_hours and break_mins must not be negative")
	}
	if s.DateFilter && s.DateFilterStart != nil && s.DateFilterEnd != nil && s.DateFilterEnd.Before(*s.DateFilterStart) {
		return fmt.Errorf("date filter ends before it starts")
	}
	return nil
}

// DateRange is the active date filter, or the zero range.
func (s *Settings) DateRange() aggregate.DateRange {
	var r aggregate.DateRange
	if !s.DateFilter {
		return r
	}
	if s.DateFilterStart != nil {
		r.From = *s.DateFilterStart
	}
	if s.DateFilterEnd != nil {
		r.To = *s.DateFilterEnd
	}
	return r
}

// Schedule is the light cycle.
func (s *Settings) Schedule() daynight.Schedule {
	return daynight.Schedule{LightsOn: int(s.LightsOn), LightsOff: int(s.LightsOff)}
}

// MealPolicy is the meal segmentation policy.
func (s *Settings) MealPolicy() meals.Policy {
	return meals.Policy{MinPellets: s.MealPelletMinimum, MaxGap: float64(s.MealDuration)}
}

func (s *Settings) retrievalCutoff() float64 {
	if s.RetrievalThreshold == nil {
		return 0
	}
	return *s.RetrievalThreshold
}

// Aggregation returns the averaging request for metric.
func (s *Settings) Aggregation(metric aggregate.Metric) aggregate.Config {
	return aggregate.Config{
		Metric:          metric,
		BinWidth:        s.AverageBins.Std(),
		Alignment:       s.AverageMethod,
		AlignHour:       int(s.AverageAlignStart),
		AlignDays:       s.AverageAlignDays,
		RetrievalCutoff: s.retrievalCutoff(),
		DateFilter:      s.DateRange(),
	}
}

// Average returns the group averaging request for metric.
func (s *Settings) Average(metric aggregate.Metric) average.Config {
	return average.Config{Config: s.Aggregation(metric), Error: s.AverageError}
}

// Breakpoint returns the breakpoint request.
func (s *Settings) Breakpoint() breakpoint.Config {
	gap := time.Duration(s.BreakHours)*time.Hour + time.Duration(s.BreakMins)*time.Minute
	return breakpoint.Config{Style: s.BreakStyle, Gap: gap, DateFilter: s.DateRange()}
}
