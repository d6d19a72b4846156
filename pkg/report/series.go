package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-socialgraph/pkg/sentiment"
)

var seriesHeader = []string{"date", "count", "mean", "std", "rolling_mean", "rolling_std"}

// WriteSeries renders a sentiment series as csv, json or yaml. The CSV form
// has one row per date with the daily and rolling values side by side;
// undefined values are empty cells.
func WriteSeries(w io.Writer, s *sentiment.Series, format string) error {
	switch format {
	case FormatCSV, "":
		return writeSeriesCSV(w, s)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeSeriesCSV(w io.Writer, s *sentiment.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(seriesHeader); err != nil {
		return err
	}

	for i, d := range s.Daily {
		row := []string{
			d.Date.Format(time.DateOnly),
			strconv.Itoa(d.Count),
			strconv.FormatFloat(d.Mean, 'g', -1, 64),
			d.Std.String(),
			"",
			"",
		}
		if i < len(s.Rolling) {
			row[4] = s.Rolling[i].Mean.String()
			row[5] = s.Rolling[i].Std.String()
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
