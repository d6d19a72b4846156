package analysis

import (
	"github.com/dd0wney/cluso-socialgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-socialgraph/pkg/report"
)

// Report converts the result into a report with the top n nodes per
// requested metric. includeNodes adds every node's scores.
func (res *Result) Report(n int, includeNodes bool) *report.Report {
	rep := &report.Report{
		RunID:       res.RunID,
		GeneratedAt: res.StartedAt,
		Graph:       res.Stats,
		TopN:        n,
		Rankings:    make([]report.Ranking, 0, len(res.Metrics)),
	}

	for _, metric := range res.Metrics {
		var ranked []algorithms.RankedNode
		if metric == MetricBridging {
			ranked = algorithms.TopBridging(res.Bridging, n, res.opts.ExcludeUndefinedBridging)
		} else {
			ranked = algorithms.TopN(res.Scores[metric], n)
		}
		rep.Rankings = append(rep.Rankings, report.Ranking{
			Metric:  metric,
			Entries: res.entries(ranked),
		})
	}

	if res.Bridging != nil {
		rep.BridgingUndefined = algorithms.CountUndefined(res.Bridging)
	}

	if c := res.Communities; c != nil {
		rep.CommunityMethod = c.Method
		rep.Modularity = c.Modularity
		rep.CommunityTopN = res.opts.CommunityTopMembers
		rep.Communities = make([]report.CommunitySummary, 0, len(c.Communities))
		for _, community := range c.Communities {
			members := algorithms.RankMembers(community.Nodes, res.Scores[MetricDegree])
			if len(members) > res.opts.CommunityTopMembers {
				members = members[:res.opts.CommunityTopMembers]
			}
			rep.Communities = append(rep.Communities, report.CommunitySummary{
				ID:      community.ID,
				Size:    community.Size,
				Density: community.Density,
				Top:     res.entries(members),
			})
		}
	}

	if includeNodes {
		rep.Nodes = res.nodeScores()
	}
	return rep
}

func (res *Result) entries(ranked []algorithms.RankedNode) []report.Entry {
	entries := make([]report.Entry, len(ranked))
	for i, rn := range ranked {
		entries[i] = report.Entry{
			NodeID:  rn.NodeID,
			Label:   res.Graph.Label(rn.NodeID),
			Score:   rn.Score,
			Defined: rn.Defined,
		}
	}
	return entries
}

// nodeScores lists every node in ascending ID order. Community is -1 when
// detection did not run.
func (res *Result) nodeScores() []report.NodeScores {
	nodes := res.Graph.Nodes()
	out := make([]report.NodeScores, len(nodes))
	for i, id := range nodes {
		ns := report.NodeScores{
			NodeID:          id,
			Label:           res.Graph.Label(id),
			Degree:          res.Graph.Degree(id),
			Community:       -1,
			BridgingDefined: res.Bridging[id].Defined(),
			Scores:          make(map[string]float64, len(res.Scores)),
		}
		if res.Communities != nil {
			ns.Community = res.Communities.NodeCommunity[id]
		}
		for metric, scores := range res.Scores {
			ns.Scores[metric] = scores[id]
		}
		out[i] = ns
	}
	return out
}
