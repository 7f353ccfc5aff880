// Package consensus aggregates agent hypotheses into a single weighted
// verdict. Pure computation: no I/O, no randomness, and apart from the
// result timestamp no clock reads — the same hypothesis set always produces
// the same result.
package consensus

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/incident-ops/quorum/pkg/models"
)

// DefaultWeights is the canonical per-agent weight table, calibrated on
// historical signal quality. Unknown agents fall back to DefaultWeight.
var DefaultWeights = map[string]float64{
	"signal-intelligence": 1.0, // direct evidence
	"historical-pattern":  0.9, // proven patterns
	"change-intelligence": 0.9, // temporal correlation
	"risk-blast-radius":   0.8, // impact estimation
	"knowledge-rag":       0.7, // document relevance
	"response-strategy":   0.6, // meta-analysis
}

// DefaultWeight applies to agents absent from the weight table.
const DefaultWeight = 0.5

// DivergenceThreshold is the minimum confidence gap that counts as a
// conflict.
const DivergenceThreshold = 0.3

// maxRecommendationLen caps the unified recommendation string.
const maxRecommendationLen = 500

// Aggregator computes consensus over a hypothesis set.
type Aggregator struct {
	weights   map[string]float64
	threshold float64
}

// New creates an Aggregator. A nil or empty weights map selects
// DefaultWeights.
func New(weights map[string]float64) *Aggregator {
	if len(weights) == 0 {
		weights = DefaultWeights
	}
	return &Aggregator{weights: weights, threshold: DivergenceThreshold}
}

// Aggregate computes the full consensus result for a hypothesis set.
func (a *Aggregator) Aggregate(hypotheses map[string]models.Hypothesis) models.ConsensusResult {
	conflicts := a.detectConflicts(hypotheses)
	unified := a.synthesize(hypotheses, conflicts)

	return models.ConsensusResult{
		AggregatedConfidence:  a.AggregateConfidence(hypotheses),
		AgreementLevel:        AgreementLevel(hypotheses),
		ConflictsDetected:     conflicts,
		UnifiedRecommendation: unified,
		MinorityOpinions:      a.minorityOpinions(hypotheses, unified),
		QualityMetrics:        QualityMetricsFor(hypotheses),
		Timestamp:             time.Now().UTC().Format(time.RFC3339),
	}
}

// AggregateConfidence is the weighted average of all hypothesis confidences:
// Σ(confidence·weight) / Σ(weight). Failed agents participate at confidence
// 0, dragging the aggregate down — a failure is a signal, not a gap.
func (a *Aggregator) AggregateConfidence(hypotheses map[string]models.Hypothesis) float64 {
	if len(hypotheses) == 0 {
		return 0.0
	}
	var weightedSum, totalWeight float64
	for _, id := range sortedIDs(hypotheses) {
		w := a.weightFor(id)
		weightedSum += hypotheses[id].Confidence * w
		totalWeight += w
	}
	if totalWeight == 0.0 {
		return 0.0
	}
	return weightedSum / totalWeight
}

func (a *Aggregator) weightFor(agentID string) float64 {
	if w, ok := a.weights[agentID]; ok {
		return w
	}
	return DefaultWeight
}

// AgreementLevel measures consensus via confidence spread:
// 1 − σ/σmax, clamped to [0,1], where σ is the population standard
// deviation and σmax = 0.5 (binary split at the extremes). Fewer than two
// hypotheses, or zero spread, is perfect agreement.
func AgreementLevel(hypotheses map[string]models.Hypothesis) float64 {
	confidences := make([]float64, 0, len(hypotheses))
	for _, h := range hypotheses {
		confidences = append(confidences, h.Confidence)
	}
	if len(confidences) < 2 {
		return 1.0
	}

	var mean float64
	for _, c := range confidences {
		mean += c
	}
	mean /= float64(len(confidences))

	var variance float64
	for _, c := range confidences {
		variance += (c - mean) * (c - mean)
	}
	variance /= float64(len(confidences))
	stdDev := math.Sqrt(variance)

	if stdDev == 0.0 {
		return 1.0
	}

	const maxStdDev = 0.5
	level := 1.0 - stdDev/maxStdDev
	return math.Max(0.0, math.Min(1.0, level))
}

// recommendation is one (agent, confidence, rec) tuple extracted from
// findings["recommendations"].
type recommendation struct {
	agentID     string
	confidence  float64
	description string
}

// groupRecommendations collects structured recommendations from successful
// hypotheses, grouped by action type. Entries whose findings carry no
// well-formed recommendations list contribute nothing. Agents are visited
// in sorted id order so grouping is deterministic.
func groupRecommendations(hypotheses map[string]models.Hypothesis, requireDescription bool) map[string][]recommendation {
	grouped := map[string][]recommendation{}
	for _, id := range sortedIDs(hypotheses) {
		h := hypotheses[id]
		if h.Status == models.StatusFailure {
			continue
		}
		for _, rec := range recommendationEntries(h.Findings) {
			recType, hasType := rec["type"].(string)
			desc, hasDesc := rec["description"].(string)
			if !hasType {
				continue
			}
			if requireDescription && !hasDesc {
				continue
			}
			grouped[recType] = append(grouped[recType], recommendation{
				agentID:     id,
				confidence:  h.Confidence,
				description: desc,
			})
		}
	}
	return grouped
}

// recommendationEntries extracts the findings["recommendations"] list,
// tolerating absent or malformed shapes.
func recommendationEntries(findings map[string]any) []map[string]any {
	raw, ok := findings["recommendations"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}

// detectConflicts flags two divergence patterns above the threshold:
// different action types whose strongest proponents disagree
// (ACTION_TYPE_DIVERGENCE), and one action type whose proponents span a
// wide confidence range (CONFIDENCE_DIVERGENCE).
func (a *Aggregator) detectConflicts(hypotheses map[string]models.Hypothesis) []models.Conflict {
	conflicts := []models.Conflict{}
	grouped := groupRecommendations(hypotheses, false)

	types := make([]string, 0, len(grouped))
	for t := range grouped {
		types = append(types, t)
	}
	sort.Strings(types)

	// Cross-type divergence: compare the strongest proponent of each pair.
	for i, type1 := range types {
		for _, type2 := range types[i+1:] {
			agent1, conf1 := strongest(grouped[type1])
			agent2, conf2 := strongest(grouped[type2])
			if math.Abs(conf1-conf2) <= a.threshold {
				continue
			}
			winner, winnerConf := agent1, conf1
			if conf2 > conf1 {
				winner, winnerConf = agent2, conf2
			}
			conflicts = append(conflicts, models.Conflict{
				Agents: []string{agent1, agent2},
				Type:   "ACTION_TYPE_DIVERGENCE",
				Description: fmt.Sprintf("%s recommends %s (%.2f), %s recommends %s (%.2f)",
					agent1, type1, conf1, agent2, type2, conf2),
				Resolution: fmt.Sprintf("Highest confidence wins: %s (%.2f)", winner, winnerConf),
			})
		}
	}

	// Within-type divergence: wide confidence spread on the same action.
	for _, recType := range types {
		recs := grouped[recType]
		if len(recs) < 2 {
			continue
		}
		maxAgent, maxConf := strongest(recs)
		minAgent, minConf := weakest(recs)
		if maxConf-minConf <= a.threshold {
			continue
		}
		conflicts = append(conflicts, models.Conflict{
			Agents: []string{maxAgent, minAgent},
			Type:   "CONFIDENCE_DIVERGENCE",
			Description: fmt.Sprintf("Confidence difference: %.2f (%.2f vs %.2f)",
				maxConf-minConf, maxConf, minConf),
			Resolution: fmt.Sprintf("Highest confidence wins: %s (%.2f)", maxAgent, maxConf),
		})
	}

	return conflicts
}

// synthesize builds the unified recommendation string from the top two
// action types by confidence, with a trailing conflicts note. Capped at 500
// characters.
func (a *Aggregator) synthesize(hypotheses map[string]models.Hypothesis, conflicts []models.Conflict) string {
	if allFailed(hypotheses) {
		return "Insufficient data for recommendation. All agents failed."
	}

	grouped := groupRecommendations(hypotheses, true)
	if len(grouped) == 0 {
		return "No actionable recommendations."
	}

	type typedRecs struct {
		recType string
		recs    []recommendation
		maxConf float64
	}
	ordered := make([]typedRecs, 0, len(grouped))
	for recType, recs := range grouped {
		_, maxConf := strongest(recs)
		ordered = append(ordered, typedRecs{recType: recType, recs: recs, maxConf: maxConf})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].maxConf != ordered[j].maxConf {
			return ordered[i].maxConf > ordered[j].maxConf
		}
		return ordered[i].recType < ordered[j].recType
	})

	successTotal := 0
	for _, h := range hypotheses {
		if h.Status != models.StatusFailure {
			successTotal++
		}
	}

	parts := []string{}
	for i, entry := range ordered {
		if i >= 2 {
			break
		}
		best := entry.recs[0]
		for _, r := range entry.recs[1:] {
			if r.confidence > best.confidence {
				best = r
			}
		}
		label := "PRIMARY"
		if i == 1 {
			label = "ALTERNATIVE"
		}
		parts = append(parts, fmt.Sprintf("%s: %s (confidence: %.2f, agents: %d/%d agree)",
			label, truncateRunes(best.description, 100), best.confidence, len(entry.recs), successTotal))
	}

	if len(conflicts) > 0 {
		parts = append(parts, fmt.Sprintf("CONFLICTS: %d detected", len(conflicts)))
	} else {
		parts = append(parts, "CONFLICTS: None detected")
	}

	unified := strings.Join(parts, ". ")
	if len(unified) > maxRecommendationLen {
		unified = unified[:maxRecommendationLen-3] + "..."
	}
	return unified
}

// minorityOpinions surfaces confident recommendations that did not make it
// into the unified string. Confidence must clear 0.5 so noise stays out.
func (a *Aggregator) minorityOpinions(hypotheses map[string]models.Hypothesis, unified string) []string {
	opinions := []string{}
	for _, id := range sortedIDs(hypotheses) {
		h := hypotheses[id]
		if h.Status == models.StatusFailure || h.Confidence <= 0.5 {
			continue
		}
		for _, rec := range recommendationEntries(h.Findings) {
			desc, ok := rec["description"].(string)
			if !ok {
				continue
			}
			if strings.Contains(unified, truncateRunes(desc, 50)) {
				continue
			}
			opinions = append(opinions, fmt.Sprintf("%s suggests %s (confidence: %.2f)",
				id, truncateRunes(desc, 100), h.Confidence))
		}
	}
	return opinions
}

// QualityMetricsFor summarizes output quality: share of SUCCESS statuses,
// share of cited hypotheses, and agreement as a coherence proxy.
func QualityMetricsFor(hypotheses map[string]models.Hypothesis) models.QualityMetrics {
	if len(hypotheses) == 0 {
		return models.QualityMetrics{}
	}
	total := float64(len(hypotheses))

	var successes, cited int
	for _, h := range hypotheses {
		if h.Status == models.StatusSuccess {
			successes++
		}
		if len(h.Citations) > 0 {
			cited++
		}
	}

	return models.QualityMetrics{
		DataCompleteness:   float64(successes) / total,
		CitationQuality:    float64(cited) / total,
		ReasoningCoherence: AgreementLevel(hypotheses),
	}
}

func allFailed(hypotheses map[string]models.Hypothesis) bool {
	for _, h := range hypotheses {
		if h.Status != models.StatusFailure {
			return false
		}
	}
	return true
}

func strongest(recs []recommendation) (string, float64) {
	agent, conf := "unknown", 0.0
	for _, r := range recs {
		if r.confidence > conf || agent == "unknown" {
			agent, conf = r.agentID, r.confidence
		}
	}
	return agent, conf
}

func weakest(recs []recommendation) (string, float64) {
	if len(recs) == 0 {
		return "unknown", 0.0
	}
	agent, conf := recs[0].agentID, recs[0].confidence
	for _, r := range recs[1:] {
		if r.confidence < conf {
			agent, conf = r.agentID, r.confidence
		}
	}
	return agent, conf
}

func sortedIDs(hypotheses map[string]models.Hypothesis) []string {
	ids := make([]string, 0, len(hypotheses))
	for id := range hypotheses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
