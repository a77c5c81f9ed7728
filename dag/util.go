package dag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/quadopt/instr"
)

// LevelTrace sits above Info so that per-block traces survive the default
// handler level.
const LevelTrace slog.Level = slog.LevelInfo + 1

// Trace logs at LevelTrace on the default logger.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// Stats summarizes the arena.
type Stats struct {
	Slots  int
	Nodes  int
	Live   int
	Leaves int
	Killed int
	Stores int
}

// Stats counts the nodes currently in the graph.
func (g *Graph) Stats() Stats {
	s := Stats{Slots: len(g.nodes)}
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		s.Nodes++
		if n.IsLeaf() {
			s.Leaves++
		}
		if n.Killed {
			s.Killed++
		} else {
			s.Live++
		}
		if n.Value == instr.OpTar {
			s.Stores++
		}
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("slots=%d nodes=%d live=%d leaves=%d killed=%d stores=%d",
		s.Slots, s.Nodes, s.Live, s.Leaves, s.Killed, s.Stores)
}

// Dump writes the node table of the graph. Discarded slots are skipped.
func (g *Graph) Dump(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Node", "Value", "Leaf", "Aliases", "Left", "Right", "Third", "Killed", "Order"})

	for i, n := range g.nodes {
		if n == nil {
			continue
		}

		leaf := "N"
		if n.IsLeaf() {
			leaf = "Y"
		}

		order := "-"
		if n.ArrayOrder != NoOrder {
			order = fmt.Sprintf("%d", n.ArrayOrder)
		}

		t.AppendRow(table.Row{
			fmt.Sprintf("n%d", i),
			n.Value,
			leaf,
			strings.Join(n.Aliases, " "),
			childName(n.Left),
			childName(n.Right),
			childName(n.Third),
			n.Killed,
			order,
		})
	}

	t.Render()
}

// String returns the node table.
func (g *Graph) String() string {
	var sb strings.Builder
	g.Dump(&sb)
	return sb.String()
}

func childName(idx int) string {
	if idx == NoChild {
		return "-"
	}
	return fmt.Sprintf("n%d", idx)
}
