package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-socialgraph/pkg/api"
	"github.com/dd0wney/cluso-socialgraph/pkg/api/middleware"
	"github.com/dd0wney/cluso-socialgraph/pkg/config"
	"github.com/dd0wney/cluso-socialgraph/pkg/health"
	"github.com/dd0wney/cluso-socialgraph/pkg/logging"
	"github.com/dd0wney/cluso-socialgraph/pkg/metrics"
	"github.com/dd0wney/cluso-socialgraph/pkg/report"
	"github.com/dd0wney/cluso-socialgraph/pkg/store"
)

const databaseCheckTimeout = 2 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rankings over GraphQL",
	Long: `Serve a report over GraphQL at /graphql, with Prometheus metrics at
/metrics and probes at /healthz and /readyz.

The report comes from --snapshot when set, otherwise the configured inputs
are analysed at startup. With --postgres-dsn the runs query lists stored runs.`,
	Example: `  socialgraph serve --snapshot run.snap --listen :8080
  SOCIALGRAPH_SERVE_JWT_SECRET=... socialgraph serve --edges User_Edge.csv`,
	PreRunE: bindFlags(map[string]string{
		"serve.listen":     "listen",
		"serve.snapshot":   "snapshot",
		"serve.rate_limit": "rate-limit",
		"input.edges":      "edges",
		"input.nodes":      "nodes",
		"postgres.dsn":     "postgres-dsn",
	}),
	RunE: runServe,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the GraphQL endpoint",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	f := serveCmd.Flags()
	f.String("listen", ":8080", "listen address")
	f.String("snapshot", "", "serve this snapshot instead of analysing inputs")
	f.Float64("rate-limit", 0, "requests per second per client (0 disables)")
	f.String("edges", "", "edge table analysed when no snapshot is given")
	f.String("nodes", "", "node table analysed when no snapshot is given")
	f.String("postgres-dsn", "", "list stored runs from PostgreSQL")

	tokenCmd.Flags().String("subject", "socialgraph", "token subject")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	serveCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	reg := metrics.DefaultRegistry()

	ctx, cancel := signalContext()
	defer cancel()

	rep, err := loadServedReport(ctx, cmd, cfg, logger, reg)
	if err != nil {
		return err
	}
	holder := api.NewReportHolder(rep)

	checker := health.NewChecker()
	checker.RegisterReadinessCheck("report", health.ReportCheck(holder.RunID))
	checker.RegisterLivenessCheck("memory", health.MemoryCheck(0))

	deps := api.Deps{
		Reports: holder,
		Metrics: reg,
		Health:  checker,
		Logger:  logger,
	}
	if cfg.Postgres.DSN != "" {
		st, err := store.New(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return err
		}
		defer st.Close()
		deps.Runs = st
		checker.RegisterReadinessCheck("postgres", health.DatabaseCheck(st.Ping, databaseCheckTimeout))
	}

	srv, err := api.NewServer(serverOptions(cfg), deps)
	if err != nil {
		return err
	}
	defer srv.Close()

	logger.Info("serving report",
		logging.RunID(rep.RunID),
		logging.String("listen", cfg.Serve.Listen),
		logging.Bool("auth", cfg.Serve.JWTSecret != ""),
	)
	return srv.ListenAndServe(ctx)
}

// loadServedReport reads the snapshot or analyses the inputs. Served
// reports always carry node scores for the node query.
func loadServedReport(ctx context.Context, cmd *cobra.Command, cfg config.Config, logger logging.Logger, reg *metrics.Registry) (*report.Report, error) {
	if cfg.Serve.Snapshot != "" {
		if flagChanged(cmd.Flags(), "edges", "nodes") {
			return nil, errors.New("--snapshot cannot be combined with --edges or --nodes")
		}
		rep, err := report.ReadSnapshot(cfg.Serve.Snapshot)
		if err != nil {
			return nil, err
		}
		reg.SetGraphSize(rep.Graph.Nodes, rep.Graph.Edges)
		logger.Info("snapshot loaded", logging.Path(cfg.Serve.Snapshot), logging.RunID(rep.RunID))
		return rep, nil
	}

	res, err := analyze(ctx, cfg, logger, reg)
	if err != nil {
		return nil, err
	}
	return res.Report(cfg.Analysis.TopN, true), nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Serve.JWTSecret == "" {
		return fmt.Errorf("serve.jwt_secret is not set (use %s_SERVE_JWT_SECRET)", config.EnvPrefix)
	}

	issuer, err := middleware.NewTokenIssuer(cfg.Serve.JWTSecret)
	if err != nil {
		return err
	}
	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	token, err := issuer.Issue(subject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
