// Package insights turns the latest sample and rolling statistics into a
// ranked list of optimisation recommendations.
package insights

import (
	"sort"
	"strings"

	"pulse/internal/models"
)

// Input is everything a rule may look at. Latest is nil before the first sample.
type Input struct {
	Latest *models.Sample
	Stats  models.Aggregates
}

func (in Input) avg(key string) *float64  { return in.Stats[key].Avg }
func (in Input) peak(key string) *float64 { return in.Stats[key].Peak }

// Rule inspects the input and optionally produces one insight.
type Rule func(Input) (models.Insight, bool)

// DefaultRules run in order; when two rules produce the same id the earlier wins.
var DefaultRules = []Rule{
	cpuRule,
	memoryRule,
	swapRule,
	diskRule,
	loadRule,
	networkRule,
	domainsRule,
	fdsRule,
	connectionsRule,
	dockerRule,
	applicationsRule,
}

// Evaluate runs DefaultRules against in.
func Evaluate(in Input) []models.Insight {
	return EvaluateRules(in, DefaultRules)
}

// EvaluateRules runs rules in order, removes duplicate ids, appends the
// healthy fallback when nothing is at warning or above, and sorts by severity.
func EvaluateRules(in Input, rules []Rule) []models.Insight {
	var out []models.Insight
	seen := make(map[string]bool)
	add := func(ins models.Insight) {
		if ins.ID == "" || seen[ins.ID] {
			return
		}
		seen[ins.ID] = true
		if ins.Severity == "" {
			ins.Severity = models.SeverityInfo
		}
		ins.Actions = cleanActions(ins.Actions)
		out = append(out, ins)
	}
	for _, rule := range rules {
		if ins, ok := rule(in); ok {
			add(ins)
		}
	}
	if !hasProblems(out) {
		add(systemHealthy)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() > out[j].Severity.Rank()
	})
	return out
}

func hasProblems(list []models.Insight) bool {
	for _, ins := range list {
		if ins.Severity == models.SeverityCritical || ins.Severity == models.SeverityWarning {
			return true
		}
	}
	return false
}

func cleanActions(actions []string) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		if strings.TrimSpace(a) != "" {
			out = append(out, a)
		}
	}
	return out
}

var systemHealthy = models.Insight{
	ID:          "system-healthy",
	Severity:    models.SeveritySuccess,
	Title:       "System resources look healthy",
	Description: "No optimisation blockers detected in the latest samples. You have headroom to experiment with new features or background tasks.",
	Actions:     []string{"Continue to capture baselines to detect regressions early."},
}
