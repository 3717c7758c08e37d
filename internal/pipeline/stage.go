// Package pipeline models a run as a small DAG of stages: validation,
// deterministic ordering, and strictly sequential execution.
package pipeline

import (
	"github.com/pdswan/wheelhouse/internal/config"
)

// Stage identifiers for the built-in graph.
const (
	StageCollectState    = "collect_state"
	StageWritePuts       = "write_puts"
	StageWriteCalls      = "write_calls"
	StageRollPositions   = "roll_positions"
	StageClosePositions  = "close_positions"
	StageRegimeRebalance = "regime_rebalance"
	StageVIXHedge        = "vix_hedge"
	StageCashManagement  = "cash_management"
	StageRecordOutcome   = "record_outcome"
)

// actionStages lists the built-in action stages in canonical order.
var actionStages = []string{
	StageWritePuts,
	StageWriteCalls,
	StageRollPositions,
	StageClosePositions,
	StageRegimeRebalance,
	StageVIXHedge,
	StageCashManagement,
}

// Stage is one node of the run graph.
type Stage struct {
	ID        string
	DependsOn []string
	Enabled   bool
}

// Graph is an ordered set of stages. Declaration order is significant: it
// breaks topological-sort ties so identical configs always resolve to the
// same execution order.
type Graph struct {
	stages []Stage
	index  map[string]int
}

// Stages returns the declared stages in declaration order.
func (g *Graph) Stages() []Stage {
	out := make([]Stage, len(g.stages))
	copy(out, g.stages)
	return out
}

// Stage returns the stage with the given id.
func (g *Graph) Stage(id string) (Stage, bool) {
	i, ok := g.index[id]
	if !ok {
		return Stage{}, false
	}
	return g.stages[i], true
}

// New builds a graph from explicit stage declarations.
func New(stages []Stage) (*Graph, error) {
	g := &Graph{index: make(map[string]int, len(stages))}
	for _, s := range stages {
		if _, dup := g.index[s.ID]; dup {
			return nil, config.Errorf("stage %s declared twice", s.ID)
		}
		g.index[s.ID] = len(g.stages)
		g.stages = append(g.stages, s)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// FromRunConfig builds the stage graph for a run: either the explicit
// run.stages declaration or the expansion of the strategies shorthand.
func FromRunConfig(run config.RunConfig) (*Graph, error) {
	if len(run.Stages) > 0 {
		stages := make([]Stage, 0, len(run.Stages))
		for _, sc := range run.Stages {
			stages = append(stages, Stage{
				ID:        sc.ID,
				DependsOn: append([]string(nil), sc.DependsOn...),
				Enabled:   sc.IsEnabled(),
			})
		}
		return New(stages)
	}

	enabled := make(map[string]bool, len(actionStages))
	var wheel, regime bool
	for _, s := range run.Strategies {
		switch s {
		case "wheel":
			wheel = true
		case "regime_rebalance":
			regime = true
		}
	}
	for _, id := range actionStages {
		switch id {
		case StageRegimeRebalance:
			enabled[id] = regime
		case StageWritePuts, StageWriteCalls, StageRollPositions, StageClosePositions:
			enabled[id] = wheel
		default:
			// vix_hedge and cash_management run under either strategy;
			// their own config enables the actual behavior.
			enabled[id] = wheel || regime
		}
	}
	return defaultGraph(enabled)
}

// defaultGraph builds the built-in chain, wiring each enabled action stage
// to its nearest enabled predecessor so no enabled stage ever depends on a
// disabled one. record_outcome depends on every enabled action stage.
func defaultGraph(enabled map[string]bool) (*Graph, error) {
	stages := []Stage{{ID: StageCollectState, Enabled: true}}

	prev := StageCollectState
	var enabledActions []string
	for _, id := range actionStages {
		st := Stage{ID: id, Enabled: enabled[id]}
		if st.Enabled {
			st.DependsOn = []string{prev}
			prev = id
			enabledActions = append(enabledActions, id)
		} else {
			st.DependsOn = []string{StageCollectState}
		}
		stages = append(stages, st)
	}

	record := Stage{ID: StageRecordOutcome, Enabled: true}
	if len(enabledActions) > 0 {
		record.DependsOn = enabledActions
	} else {
		record.DependsOn = []string{StageCollectState}
	}
	stages = append(stages, record)

	return New(stages)
}

// Validate checks the graph invariants: known dependencies, no cycles, no
// enabled stage depending on a disabled one, and collect_state reachable
// from every other enabled stage.
func (g *Graph) Validate() error {
	for _, s := range g.stages {
		for _, dep := range s.DependsOn {
			di, ok := g.index[dep]
			if !ok {
				return config.Errorf("stage %s depends on unknown stage %s", s.ID, dep)
			}
			if dep == s.ID {
				return config.Errorf("stage %s depends on itself", s.ID)
			}
			if s.Enabled && !g.stages[di].Enabled {
				return config.Errorf("stage %s depends on a disabled stage %s", s.ID, dep)
			}
		}
	}

	if _, err := g.ResolveOrder(); err != nil {
		return err
	}

	collect, ok := g.Stage(StageCollectState)
	if !ok || !collect.Enabled {
		return config.Errorf("stage graph requires an enabled %s stage", StageCollectState)
	}
	if len(collect.DependsOn) > 0 {
		return config.Errorf("stage %s must not have dependencies", StageCollectState)
	}
	for _, s := range g.stages {
		if !s.Enabled || s.ID == StageCollectState {
			continue
		}
		if !g.reaches(s.ID, StageCollectState) {
			return config.Errorf("stage %s must depend on %s, directly or transitively", s.ID, StageCollectState)
		}
	}
	return nil
}

// reaches reports whether target is a transitive dependency of from.
func (g *Graph) reaches(from, target string) bool {
	seen := make(map[string]bool, len(g.stages))
	queue := []string{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range g.stages[g.index[id]].DependsOn {
			if dep == target {
				return true
			}
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// ResolveOrder returns a deterministic topological order over all declared
// stages. Kahn's algorithm; among ready stages the one declared first wins.
func (g *Graph) ResolveOrder() ([]string, error) {
	indegree := make([]int, len(g.stages))
	dependents := make([][]int, len(g.stages))
	for i, s := range g.stages {
		for _, dep := range s.DependsOn {
			di, ok := g.index[dep]
			if !ok {
				return nil, config.Errorf("stage %s depends on unknown stage %s", s.ID, dep)
			}
			indegree[i]++
			dependents[di] = append(dependents[di], i)
		}
	}

	order := make([]string, 0, len(g.stages))
	done := make([]bool, len(g.stages))
	for len(order) < len(g.stages) {
		next := -1
		for i := range g.stages {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			return nil, config.Errorf("stage graph contains a dependency cycle")
		}
		done[next] = true
		order = append(order, g.stages[next].ID)
		for _, di := range dependents[next] {
			indegree[di]--
		}
	}
	return order, nil
}
