package guardian

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incident-ops/quorum/pkg/models"
)

func costedHypothesis(agentID string, inputTokens, outputTokens int, cost float64, model string) models.Hypothesis {
	return models.Hypothesis{
		AgentID: agentID,
		Status:  models.StatusSuccess,
		Cost: models.InvocationCost{
			InputTokens:   inputTokens,
			OutputTokens:  outputTokens,
			EstimatedCost: cost,
			Model:         model,
		},
	}
}

func TestPerAgentCosts(t *testing.T) {
	hyps := map[string]models.Hypothesis{
		"signal-intelligence": costedHypothesis("signal-intelligence", 1200, 300, 0.0081, "claude-3-5-sonnet"),
		"historical-pattern":  costedHypothesis("historical-pattern", 0, 0, 0.0, ""),
	}

	perAgent := PerAgentCosts(hyps)
	require.Len(t, perAgent, 2)

	assert.Equal(t, models.AgentCost{
		InputTokens:  1200,
		OutputTokens: 300,
		Cost:         0.0081,
		Model:        "claude-3-5-sonnet",
	}, perAgent["signal-intelligence"])

	// Pre-invocation failures carry no model; the breakdown still lists them.
	assert.Equal(t, "N/A", perAgent["historical-pattern"].Model)
	assert.Zero(t, perAgent["historical-pattern"].Cost)
}

func TestTotalCost_RoundsToSixDecimals(t *testing.T) {
	perAgent := map[string]models.AgentCost{
		"a": {Cost: 0.0000014},
		"b": {Cost: 0.0000014},
	}
	assert.Equal(t, 0.000003, TotalCost(perAgent))
}

func TestTotalCost_Empty(t *testing.T) {
	assert.Zero(t, TotalCost(map[string]models.AgentCost{}))
}

func TestExceeded(t *testing.T) {
	assert.True(t, Exceeded(0.0, -0.01), "negative budget is already exceeded")
	assert.True(t, Exceeded(0.02, 0.01))
	assert.False(t, Exceeded(0.01, 0.01), "spending exactly the budget is not exceeded")
	assert.False(t, Exceeded(0.0, 0.0))
	assert.False(t, Exceeded(0.0, 1.0))
}

func TestMonthlyBurn(t *testing.T) {
	g := New(0, 0)
	assert.InDelta(t, 0.00675*10*30, g.MonthlyBurn(0.00675), 1e-12)
	assert.Zero(t, g.MonthlyBurn(0))

	custom := New(4, 28)
	assert.InDelta(t, 0.01*4*28, custom.MonthlyBurn(0.01), 1e-12)
}

func TestIncidentsRemaining(t *testing.T) {
	assert.Equal(t, 0, IncidentsRemaining(5.0, 0.0), "zero cost cannot be extrapolated")
	assert.Equal(t, 0, IncidentsRemaining(-0.2, 0.01), "exhausted budget")
	assert.Equal(t, 0, IncidentsRemaining(0.0, 0.01))
	assert.Equal(t, 1666, IncidentsRemaining(5.0, 0.003))
	assert.Equal(t, 2, IncidentsRemaining(0.025, 0.01), "floor, not round")
}

func TestReport_BudgetSignal(t *testing.T) {
	g := New(0, 0)
	hyps := map[string]models.Hypothesis{
		"a": costedHypothesis("a", 500, 100, 0.003, "claude-3-5-sonnet"),
		"b": costedHypothesis("b", 400, 80, 0.00375, "claude-3-5-sonnet"),
	}

	report := g.Report(hyps, 0.001)

	assert.Equal(t, 0.00675, report.TotalCost)
	assert.InDelta(t, -0.005750, report.BudgetRemaining, 1e-12)
	assert.True(t, report.BudgetExceeded)
	assert.Equal(t, 0, report.Projections.IncidentsRemaining)
	assert.InDelta(t, 0.00675*10*30, report.Projections.MonthlyBurn, 1e-12)
	assert.NotEmpty(t, report.Timestamp)
}

func TestReport_WithinBudget(t *testing.T) {
	g := New(0, 0)
	hyps := map[string]models.Hypothesis{
		"a": costedHypothesis("a", 500, 100, 0.003, "claude-3-5-sonnet"),
	}

	report := g.Report(hyps, 1.0)

	assert.Equal(t, 0.003, report.TotalCost)
	assert.InDelta(t, 0.997, report.BudgetRemaining, 1e-12)
	assert.False(t, report.BudgetExceeded)
	assert.Equal(t, 332, report.Projections.IncidentsRemaining)
}

func TestReport_AllAgentsFree(t *testing.T) {
	g := New(0, 0)
	hyps := map[string]models.Hypothesis{
		"a": costedHypothesis("a", 0, 0, 0.0, ""),
		"b": costedHypothesis("b", 0, 0, 0.0, ""),
	}

	report := g.Report(hyps, 5.0)

	assert.Zero(t, report.TotalCost)
	assert.Equal(t, 5.0, report.BudgetRemaining)
	assert.False(t, report.BudgetExceeded)
	assert.Zero(t, report.Projections.MonthlyBurn)
	assert.Equal(t, 0, report.Projections.IncidentsRemaining)
}

func TestReportProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genCosts := gen.SliceOfN(6, gen.Float64Range(0.0, 0.05))
	g := New(0, 0)

	hypsFrom := func(costs []float64) map[string]models.Hypothesis {
		hyps := map[string]models.Hypothesis{}
		for i, c := range costs {
			id := fmt.Sprintf("agent-%d", i)
			hyps[id] = costedHypothesis(id, 100, 20, c, "claude-3-5-sonnet")
		}
		return hyps
	}

	properties.Property("budget arithmetic balances", prop.ForAll(
		func(costs []float64, budget float64) bool {
			report := g.Report(hypsFrom(costs), budget)
			return report.BudgetRemaining == budget-report.TotalCost
		},
		genCosts,
		gen.Float64Range(0.0, 10.0),
	))

	properties.Property("incidents remaining is never negative", prop.ForAll(
		func(costs []float64, budget float64) bool {
			report := g.Report(hypsFrom(costs), budget)
			return report.Projections.IncidentsRemaining >= 0
		},
		genCosts,
		gen.Float64Range(-1.0, 10.0),
	))

	properties.Property("report is deterministic", prop.ForAll(
		func(costs []float64, budget float64) bool {
			a := g.Report(hypsFrom(costs), budget)
			b := g.Report(hypsFrom(costs), budget)
			return a.TotalCost == b.TotalCost &&
				a.BudgetRemaining == b.BudgetRemaining &&
				a.BudgetExceeded == b.BudgetExceeded &&
				a.Projections == b.Projections
		},
		genCosts,
		gen.Float64Range(0.0, 10.0),
	))

	properties.TestingRun(t)
}
