package main

import (
	"time"

	"github.com/dd0wney/cluso-socialgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-socialgraph/pkg/analysis"
	"github.com/dd0wney/cluso-socialgraph/pkg/api"
	"github.com/dd0wney/cluso-socialgraph/pkg/api/middleware"
	"github.com/dd0wney/cluso-socialgraph/pkg/config"
	"github.com/dd0wney/cluso-socialgraph/pkg/dataset"
	"github.com/dd0wney/cluso-socialgraph/pkg/sentiment"
)

func analysisOptions(cfg config.Config) analysis.Options {
	a := cfg.Analysis
	opts := analysis.Options{
		Metrics:                  a.Metrics,
		TopN:                     a.TopN,
		Workers:                  a.Workers,
		ExcludeUndefinedBridging: a.ExcludeUndefinedBridging,
		Eigenvector: algorithms.EigenvectorOptions{
			MaxIterations: a.Eigenvector.MaxIterations,
			Tolerance:     a.Eigenvector.Tolerance,
		},
		PageRank: algorithms.PageRankOptions{
			DampingFactor: a.PageRank.DampingFactor,
			MaxIterations: a.PageRank.MaxIterations,
			Tolerance:     a.PageRank.Tolerance,
		},
		CommunityTopMembers: a.Community.TopMembers,
	}
	if a.Community.Enabled {
		opts.Community = &algorithms.CommunityOptions{
			Method:        a.Community.Method,
			Resolution:    a.Community.Resolution,
			Seed:          a.Community.Seed,
			MaxIterations: a.Community.MaxIterations,
		}
	}
	return opts
}

func inputTables(cfg config.Config) dataset.Tables {
	in := cfg.Input
	return dataset.Tables{
		Edges:       in.Edges,
		Nodes:       in.Nodes,
		EdgeColumns: dataset.EdgeColumns{Source: in.SourceColumn, Target: in.TargetColumn},
		NodeColumns: dataset.NodeColumns{ID: in.IDColumn, Label: in.LabelColumn},
	}
}

func newOpener(cfg config.Config) *dataset.Opener {
	s3 := cfg.Input.S3
	return dataset.NewOpener(dataset.S3Options{
		Region:          s3.Region,
		Endpoint:        s3.Endpoint,
		AccessKeyID:     s3.AccessKeyID,
		SecretAccessKey: s3.SecretAccessKey,
		UsePathStyle:    s3.UsePathStyle,
	})
}

func sentimentOptions(cfg config.Config) (sentiment.Options, error) {
	opts := sentiment.Options{Window: cfg.Sentiment.Window}
	if cfg.Sentiment.Until != "" {
		until, err := time.Parse(time.DateOnly, cfg.Sentiment.Until)
		if err != nil {
			return sentiment.Options{}, err
		}
		opts.Until = until
	}
	return opts, nil
}

func serverOptions(cfg config.Config) api.Options {
	s := cfg.Serve
	opts := api.Options{
		Listen:       s.Listen,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		JWTSecret:    s.JWTSecret,
		CORSOrigins:  s.CORSOrigins,
	}
	if s.RateLimit > 0 {
		limit := middleware.DefaultRateLimitConfig()
		limit.RequestsPerSecond = s.RateLimit
		limit.BurstSize = s.RateBurst
		opts.RateLimit = limit
	}
	return opts
}
