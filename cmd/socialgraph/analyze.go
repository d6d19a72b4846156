package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-socialgraph/pkg/analysis"
	"github.com/dd0wney/cluso-socialgraph/pkg/config"
	"github.com/dd0wney/cluso-socialgraph/pkg/dataset"
	"github.com/dd0wney/cluso-socialgraph/pkg/logging"
	"github.com/dd0wney/cluso-socialgraph/pkg/metrics"
	"github.com/dd0wney/cluso-socialgraph/pkg/report"
	"github.com/dd0wney/cluso-socialgraph/pkg/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Rank users by centrality and detect communities",
	Long: `Load the follower graph and print the top users for each centrality metric.

The bridging ranking multiplies betweenness by the bridging coefficient
1 / sum(1/deg(v)) over a node's neighbours. Isolated nodes have no
coefficient and are reported with a score of -1.`,
	Example: `  socialgraph analyze --edges User_Edge.csv --nodes User_ID.csv
  socialgraph analyze --edges s3://tweets/User_Edge.csv --format json --snapshot run.snap`,
	PreRunE: bindFlags(map[string]string{
		"input.edges":           "edges",
		"input.nodes":           "nodes",
		"analysis.top_n":        "top",
		"analysis.metrics":      "metrics",
		"analysis.workers":      "workers",
		"output.format":         "format",
		"output.path":           "output",
		"output.snapshot":       "snapshot",
		"output.include_scores": "include-scores",
		"metrics.textfile":      "metrics-textfile",
		"postgres.dsn":          "postgres-dsn",
	}),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.String("edges", "", "edge table (path or s3://bucket/key)")
	f.String("nodes", "", "node table with labels (optional)")
	f.Int("top", 10, "entries per ranking")
	f.StringSlice("metrics", analysis.DefaultOptions().Metrics, "metrics to compute: "+strings.Join(analysis.AllMetrics, ", "))
	f.Int("workers", 0, "betweenness workers (0 uses every CPU)")
	f.String("format", report.FormatText, "output format: text, json or yaml")
	f.StringP("output", "o", "", "write the report to a file instead of stdout")
	f.String("snapshot", "", "also write a compressed snapshot for serve and tui")
	f.Bool("include-scores", false, "include every node's scores in the report")
	f.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")
	f.String("postgres-dsn", "", "save the run to PostgreSQL")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	reg := metrics.DefaultRegistry()

	ctx, cancel := signalContext()
	defer cancel()

	res, err := analyze(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}

	rep := res.Report(cfg.Analysis.TopN, cfg.Output.IncludeScores)
	if err := writeReport(cmd.OutOrStdout(), cfg.Output, rep); err != nil {
		return err
	}

	if cfg.Output.Snapshot != "" {
		// Snapshots always carry node scores so serve and tui can answer node queries.
		snap := rep
		if !cfg.Output.IncludeScores {
			snap = res.Report(cfg.Analysis.TopN, true)
		}
		if err := report.WriteSnapshot(cfg.Output.Snapshot, snap); err != nil {
			return err
		}
		logger.Info("snapshot written", logging.Path(cfg.Output.Snapshot), logging.RunID(rep.RunID))
	}

	if cfg.Postgres.DSN != "" {
		if err := saveRun(ctx, cfg.Postgres, rep); err != nil {
			return err
		}
		logger.Info("run saved to postgres", logging.RunID(rep.RunID))
	}

	if cfg.Metrics.Textfile != "" {
		if err := reg.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// analyze loads the configured tables and runs every configured stage
func analyze(ctx context.Context, cfg config.Config, logger logging.Logger, reg *metrics.Registry) (*analysis.Result, error) {
	g, stats, err := dataset.LoadGraph(ctx, newOpener(cfg), inputTables(cfg), logger, reg)
	if err != nil {
		return nil, err
	}

	res, err := analysis.Run(ctx, g, analysisOptions(cfg), analysis.Deps{Logger: logger, Metrics: reg})
	if err != nil {
		return nil, err
	}
	res.Stats = stats.Graph
	return res, nil
}

func writeReport(stdout io.Writer, out config.OutputConfig, rep *report.Report) error {
	if out.Path == "" {
		return report.Write(stdout, rep, out.Format)
	}

	f, err := os.Create(out.Path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := report.Write(f, rep, out.Format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func saveRun(ctx context.Context, pg config.PostgresConfig, rep *report.Report) error {
	st, err := store.New(ctx, pg.DSN, pg.MaxConns)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SaveReport(ctx, rep)
}
