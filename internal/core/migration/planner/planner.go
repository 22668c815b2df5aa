// Package planner turns schema changes into an ordered list of compiled
// statements.
package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/grammar"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	querydomain "github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
	"github.com/alchemy-swift/alchemy-sub004/internal/debug"
)

// Plan is the compiled form of a list of schema changes.
type Plan struct {
	Changes    []domain.SchemaChange
	Statements []querydomain.SQL
	// Owner maps each statement to the index in Changes that produced it.
	Owner    []int
	Checksum string
}

// Destructive reports whether any change in the plan may lose data.
func (p *Plan) Destructive() bool {
	for _, c := range p.Changes {
		if c.IsDestructive() {
			return true
		}
	}
	return false
}

// Planner compiles changes with a fixed grammar.
type Planner struct {
	grammar *grammar.Grammar
}

// NewPlanner creates a planner for g.
func NewPlanner(g *grammar.Grammar) *Planner {
	return &Planner{grammar: g}
}

// Plan orders changes, compiles each one and checksums the result. Only
// CREATE TABLE changes move: they are reordered among their own positions
// so that referenced tables are created first.
func (p *Planner) Plan(changes []domain.SchemaChange) (*Plan, error) {
	ordered := orderChanges(changes)

	plan := &Plan{Changes: ordered}
	for i, change := range ordered {
		stmts, err := p.grammar.CompileSchema(change)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s: %w", describe(change), err)
		}
		for _, s := range stmts {
			plan.Statements = append(plan.Statements, s)
			plan.Owner = append(plan.Owner, i)
		}
	}
	plan.Checksum = Checksum(plan.Statements)
	return plan, nil
}

// Checksum returns the hex SHA-256 of stmts, binds included.
func Checksum(stmts []querydomain.SQL) string {
	h := sha256.New()
	for _, s := range stmts {
		h.Write([]byte(s.Statement))
		for _, b := range s.Binds {
			h.Write([]byte{0})
			h.Write([]byte(fmt.Sprint(b)))
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func describe(c domain.SchemaChange) string {
	if c == nil {
		return "nil change"
	}
	return c.Description()
}

// orderChanges sorts the CREATE TABLE changes topologically by foreign key
// and writes them back into the slots CREATE TABLE changes held.
func orderChanges(changes []domain.SchemaChange) []domain.SchemaChange {
	var (
		slots  []int
		tables []domain.CreateTable
	)
	for i, c := range changes {
		if ct, ok := c.(domain.CreateTable); ok {
			slots = append(slots, i)
			tables = append(tables, ct)
		}
	}

	out := make([]domain.SchemaChange, len(changes))
	copy(out, changes)
	if len(tables) < 2 {
		return out
	}
	for i, ct := range topologicalSort(tables) {
		out[slots[i]] = ct
	}
	return out
}

// topologicalSort runs Kahn's algorithm, always taking the lowest ready
// index so equal inputs give equal output. Tables caught in a cycle keep
// their relative order at the end.
func topologicalSort(tables []domain.CreateTable) []domain.CreateTable {
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		index[t.Table] = i
	}

	inDegree := make([]int, len(tables))
	graph := make([][]int, len(tables)) // referenced table -> dependents
	for i, t := range tables {
		for _, ref := range t.References() {
			j, ok := index[ref]
			if !ok {
				continue
			}
			graph[j] = append(graph[j], i)
			inDegree[i]++
		}
	}

	var queue []int
	for i := range tables {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	result := make([]domain.CreateTable, 0, len(tables))
	added := make([]bool, len(tables))
	for len(queue) > 0 {
		sort.Ints(queue)
		current := queue[0]
		queue = queue[1:]

		result = append(result, tables[current])
		added[current] = true

		for _, dependent := range graph[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) < len(tables) {
		var cycle []string
		for i, t := range tables {
			if !added[i] {
				result = append(result, t)
				cycle = append(cycle, t.Table)
			}
		}
		debug.Warn("foreign key cycle between created tables", "tables", cycle)
	}
	return result
}
