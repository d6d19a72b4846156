// Package sentiment turns timestamped tweet sentiment values into daily and
// rolling summary series.
package sentiment

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/dd0wney/cluso-socialgraph/pkg/dataset"
)

// ErrInvalidWindow is returned for a rolling window smaller than one row.
var ErrInvalidWindow = errors.New("rolling window must be at least 1")

// DefaultWindow is the weekly smoothing window
const DefaultWindow = 7

// DefaultUntil is the last date shown by the original timeline
var DefaultUntil = time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC)

// Columns names the timestamp and value columns of the tweet table
type Columns struct {
	Date  string
	Value string
}

// DefaultColumns matches the Tweet_date&time / Tweet_Sentiment_Value export
func DefaultColumns() Columns {
	return Columns{Date: "Tweet_date&time", Value: "Tweet_Sentiment_Value"}
}

// Tweet is one scored tweet
type Tweet struct {
	Time  time.Time
	Value float64
}

// Date returns the tweet's calendar date in its own time zone, as UTC midnight
func (t Tweet) Date() time.Time {
	y, m, d := t.Time.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	time.DateOnly,
}

// ParseTime accepts the timestamp layouts found in tweet exports
func ParseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

// ReadTweets reads every tweet with a sentiment value. Rows whose value is
// blank are skipped, as they carry no score.
func ReadTweets(r io.Reader, cols Columns) ([]Tweet, error) {
	t, err := dataset.NewTable(r)
	if err != nil {
		return nil, err
	}
	di, err := t.Index(cols.Date)
	if err != nil {
		return nil, err
	}
	vi, err := t.Index(cols.Value)
	if err != nil {
		return nil, err
	}

	var tweets []Tweet
	err = t.Each(func(line int, record []string) error {
		rawValue := dataset.Field(record, vi)
		if rawValue == "" {
			return nil
		}
		value, err := strconv.ParseFloat(rawValue, 64)
		if err != nil {
			return fmt.Errorf("line %d: %s: invalid value %q", line, cols.Value, rawValue)
		}
		ts, err := ParseTime(dataset.Field(record, di))
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", line, cols.Date, err)
		}
		tweets = append(tweets, Tweet{Time: ts, Value: value})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tweets, nil
}

// DailyRow summarises one calendar date
type DailyRow struct {
	Date  time.Time `json:"date" yaml:"date"`
	Count int       `json:"count" yaml:"count"`
	Mean  float64   `json:"mean" yaml:"mean"`
	Std   Optional  `json:"std" yaml:"std"` // sample std, undefined below two tweets
}

// Daily groups tweets by date, oldest first.
func Daily(tweets []Tweet) []DailyRow {
	byDate := make(map[time.Time][]float64)
	for _, t := range tweets {
		d := t.Date()
		byDate[d] = append(byDate[d], t.Value)
	}

	rows := make([]DailyRow, 0, len(byDate))
	for date, values := range byDate {
		row := DailyRow{
			Date:  date,
			Count: len(values),
			Mean:  stat.Mean(values, nil),
		}
		if len(values) >= 2 {
			row.Std = Some(stat.StdDev(values, nil))
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b DailyRow) int { return a.Date.Compare(b.Date) })
	return rows
}

// RollingRow is the trailing-window summary ending at Date
type RollingRow struct {
	Date time.Time `json:"date" yaml:"date"`
	Mean Optional  `json:"mean" yaml:"mean"` // mean of daily means
	Std  Optional  `json:"std" yaml:"std"`   // sample std of daily stds
}

// Rolling slides a window of rows (not calendar days) over daily. Values are
// undefined until the window is full, and the std is undefined whenever any
// daily std in the window is.
func Rolling(daily []DailyRow, window int) ([]RollingRow, error) {
	if window < 1 {
		return nil, ErrInvalidWindow
	}

	rows := make([]RollingRow, len(daily))
	means := make([]float64, 0, window)
	stds := make([]float64, 0, window)

	for i, d := range daily {
		rows[i].Date = d.Date
		if i+1 < window {
			continue
		}

		means = means[:0]
		stds = stds[:0]
		complete := true
		for _, w := range daily[i+1-window : i+1] {
			means = append(means, w.Mean)
			if !w.Std.Valid {
				complete = false
				continue
			}
			stds = append(stds, w.Std.Value)
		}

		rows[i].Mean = Some(stat.Mean(means, nil))
		if complete && window >= 2 {
			rows[i].Std = Some(stat.StdDev(stds, nil))
		}
	}
	return rows, nil
}

// Options configures Build
type Options struct {
	Window int
	Until  time.Time // zero keeps every date
}

// Series is the complete sentiment-over-time output
type Series struct {
	Window  int          `json:"window" yaml:"window"`
	Until   time.Time    `json:"until,omitzero" yaml:"until,omitempty"`
	Daily   []DailyRow   `json:"daily" yaml:"daily"`
	Rolling []RollingRow `json:"rolling" yaml:"rolling"`
}

// Build computes the daily and rolling series, dropping dates after Until.
// The rolling window runs over the full history before clipping.
func Build(tweets []Tweet, opts Options) (*Series, error) {
	window := cmp.Or(opts.Window, DefaultWindow)

	daily := Daily(tweets)
	rolling, err := Rolling(daily, window)
	if err != nil {
		return nil, err
	}

	if !opts.Until.IsZero() {
		keep := len(daily)
		for i, d := range daily {
			if d.Date.After(opts.Until) {
				keep = i
				break
			}
		}
		daily = daily[:keep]
		rolling = rolling[:keep]
	}

	return &Series{
		Window:  window,
		Until:   opts.Until,
		Daily:   daily,
		Rolling: rolling,
	}, nil
}
