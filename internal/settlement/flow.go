package settlement

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"tripledger/internal/core"
)

// Fixed node labels of the flow graph.
const (
	NodeTotalIncome     = "Total Income"
	NodeTotalExpense    = "Total Expense"
	NodeRemainingBudget = "Remaining Budget"
)

// FlowGraph is a weighted directed graph over labelled nodes.
type FlowGraph struct {
	Nodes []string `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// Edge points from one node index to another. It is encoded in JSON as
// [source, target, weight].
type Edge struct {
	Source int
	Target int
	Weight decimal.Decimal
}

func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Source, e.Target, json.Number(e.Weight.String())})
}

func (e *Edge) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("edge: expected 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.Source); err != nil {
		return fmt.Errorf("edge source: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Target); err != nil {
		return fmt.Errorf("edge target: %w", err)
	}
	if err := e.Weight.UnmarshalJSON(raw[2]); err != nil {
		return fmt.Errorf("edge weight: %w", err)
	}
	return nil
}

// Index returns the position of label in the node list, or -1.
func (g FlowGraph) Index(label string) int {
	for i, n := range g.Nodes {
		if n == label {
			return i
		}
	}
	return -1
}

// EvenSplit divides income across participants, rounded to two places.
// Zero participants yield zero.
func EvenSplit(income int64, participants int) decimal.Decimal {
	if participants <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(income).DivRound(decimal.NewFromInt(int64(participants)), 2)
}

// buildFlowGraph lays the nodes out as Total Income, participants, categories,
// Total Expense, Remaining Budget and links them in that order.
func buildFlowGraph(s Settlement, categories []core.Category, spend map[string]map[core.Category]int64) FlowGraph {
	nodes := make([]string, 0, 3+len(s.Participants)+len(categories))
	nodes = append(nodes, NodeTotalIncome)
	nodes = append(nodes, s.Participants...)
	for _, c := range categories {
		nodes = append(nodes, c.String())
	}
	nodes = append(nodes, NodeTotalExpense, NodeRemainingBudget)

	personAt := func(i int) int { return 1 + i }
	categoryAt := func(i int) int { return 1 + len(s.Participants) + i }
	expenseAt := len(nodes) - 2
	remainingAt := len(nodes) - 1

	edges := make([]Edge, 0, len(s.Participants)*(1+len(categories))+2)
	share := EvenSplit(s.TotalIncome, len(s.Participants))
	for i := range s.Participants {
		edges = append(edges, Edge{Source: 0, Target: personAt(i), Weight: share})
	}
	for i, name := range s.Participants {
		for j, c := range categories {
			edges = append(edges, Edge{
				Source: personAt(i),
				Target: categoryAt(j),
				Weight: decimal.NewFromInt(spend[name][c]),
			})
		}
	}
	edges = append(edges,
		Edge{Source: 0, Target: expenseAt, Weight: decimal.NewFromInt(s.TotalExpense)},
		Edge{Source: 0, Target: remainingAt, Weight: decimal.NewFromInt(s.RemainingBudget)},
	)

	return FlowGraph{Nodes: nodes, Edges: edges}
}
