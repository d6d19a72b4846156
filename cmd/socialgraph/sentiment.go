package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-socialgraph/pkg/logging"
	"github.com/dd0wney/cluso-socialgraph/pkg/report"
	"github.com/dd0wney/cluso-socialgraph/pkg/sentiment"
)

var sentimentCmd = &cobra.Command{
	Use:   "sentiment",
	Short: "Aggregate tweet sentiment into a daily series",
	Long: `Average tweet sentiment per calendar day and smooth it with a rolling
mean and standard deviation over the configured window.`,
	Example: `  socialgraph sentiment --input Date-Time-TweetSentiment.csv --window 7
  socialgraph sentiment --input s3://tweets/sentiment.csv --format json -o series.json`,
	PreRunE: bindFlags(map[string]string{
		"sentiment.input":  "input",
		"sentiment.window": "window",
		"sentiment.until":  "until",
		"sentiment.format": "format",
		"sentiment.output": "output",
	}),
	RunE: runSentiment,
}

func init() {
	f := sentimentCmd.Flags()
	f.String("input", "", "tweet sentiment table (path or s3://bucket/key)")
	f.Int("window", sentiment.DefaultWindow, "rolling window in days")
	f.String("until", sentiment.DefaultUntil.Format("2006-01-02"), "last date to keep (YYYY-MM-DD, empty keeps all)")
	f.String("format", report.FormatCSV, "output format: csv, json or yaml")
	f.StringP("output", "o", "", "write the series to a file instead of stdout")

	rootCmd.AddCommand(sentimentCmd)
}

func runSentiment(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	sc := cfg.Sentiment

	opts, err := sentimentOptions(cfg)
	if err != nil {
		return fmt.Errorf("invalid --until: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	timer := logging.StartTimer(logger, "sentiment series", logging.Path(sc.Input))

	rc, err := newOpener(cfg).Open(ctx, sc.Input)
	if err != nil {
		timer.EndError(err)
		return err
	}
	tweets, err := sentiment.ReadTweets(rc, sentiment.Columns{Date: sc.DateColumn, Value: sc.ValueColumn})
	rc.Close()
	if err != nil {
		timer.EndError(err)
		return err
	}

	series, err := sentiment.Build(tweets, opts)
	if err != nil {
		timer.EndError(err)
		return err
	}
	timer.End()

	out := cmd.OutOrStdout()
	if sc.Output != "" {
		f, err := os.Create(sc.Output)
		if err != nil {
			return fmt.Errorf("failed to create series file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return report.WriteSeries(out, series, sc.Format)
}
