// Package guardian computes the cost report for a finished set of agent
// invocations. It is pure arithmetic: no model calls, no I/O, no randomness.
// The budget-exceeded flag is a signal for downstream consumers and never
// alters behavior within the run that produced it.
package guardian

import (
	"sort"
	"time"

	"github.com/incident-ops/quorum/pkg/models"
)

// Projection assumptions used when none are configured.
const (
	DefaultIncidentsPerDay = 10
	DefaultDaysPerMonth    = 30
)

// Guardian carries the projection assumptions. The zero value is not usable;
// construct with New.
type Guardian struct {
	incidentsPerDay int
	daysPerMonth    int
}

// New returns a Guardian with the given projection assumptions. Values at or
// below zero fall back to the defaults.
func New(incidentsPerDay, daysPerMonth int) *Guardian {
	if incidentsPerDay <= 0 {
		incidentsPerDay = DefaultIncidentsPerDay
	}
	if daysPerMonth <= 0 {
		daysPerMonth = DefaultDaysPerMonth
	}
	return &Guardian{incidentsPerDay: incidentsPerDay, daysPerMonth: daysPerMonth}
}

// Report aggregates per-agent costs into a budget report against the budget
// that was available before this incident.
func (g *Guardian) Report(hypotheses map[string]models.Hypothesis, budgetBefore float64) models.BudgetReport {
	perAgent := PerAgentCosts(hypotheses)
	total := TotalCost(perAgent)
	after := budgetBefore - total

	return models.BudgetReport{
		TotalCost:       total,
		BudgetRemaining: after,
		BudgetExceeded:  Exceeded(total, budgetBefore),
		PerAgentCost:    perAgent,
		Projections: models.BudgetProjections{
			MonthlyBurn:        g.MonthlyBurn(total),
			IncidentsRemaining: IncidentsRemaining(after, total),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// PerAgentCosts extracts the cost breakdown from every hypothesis, failed
// ones included. A pre-invocation failure carries zero tokens, zero cost and
// no model.
func PerAgentCosts(hypotheses map[string]models.Hypothesis) map[string]models.AgentCost {
	perAgent := make(map[string]models.AgentCost, len(hypotheses))
	for agentID, h := range hypotheses {
		model := h.Cost.Model
		if model == "" {
			model = "N/A"
		}
		perAgent[agentID] = models.AgentCost{
			InputTokens:  h.Cost.InputTokens,
			OutputTokens: h.Cost.OutputTokens,
			Cost:         h.Cost.EstimatedCost,
			Model:        model,
		}
	}
	return perAgent
}

// TotalCost sums the per-agent costs, rounded to six decimals so repeated
// runs over the same outputs agree to the digit. Summation follows sorted
// agent order because float addition is order-sensitive and map iteration
// is not stable.
func TotalCost(perAgent map[string]models.AgentCost) float64 {
	ids := make([]string, 0, len(perAgent))
	for id := range perAgent {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var total float64
	for _, id := range ids {
		total += perAgent[id].Cost
	}
	return models.Round6(total)
}

// Exceeded reports whether this incident ran past the available budget. A
// budget that was already negative counts as exceeded regardless of cost.
func Exceeded(totalCost, budgetBefore float64) bool {
	if budgetBefore < 0 {
		return true
	}
	return totalCost > budgetBefore
}

// MonthlyBurn projects monthly spend using this incident's cost as the
// per-incident average.
func (g *Guardian) MonthlyBurn(totalCost float64) float64 {
	return totalCost * float64(g.incidentsPerDay) * float64(g.daysPerMonth)
}

// IncidentsRemaining estimates how many more incidents of the same cost the
// remaining budget covers. Zero when the cost is zero (nothing to
// extrapolate from) or the budget is already spent.
func IncidentsRemaining(budgetAfter, totalCost float64) int {
	if totalCost <= 0 {
		return 0
	}
	if budgetAfter <= 0 {
		return 0
	}
	return int(budgetAfter / totalCost)
}
