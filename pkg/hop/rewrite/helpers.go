package rewrite

import (
	"context"
	"fmt"

	"github.com/matzehuels/dmlopt/pkg/hop"
	"github.com/matzehuels/dmlopt/pkg/observability"
)

// zeros builds matrix(0, rows, cols) tiled like the node it is derived from.
func zeros(g *hop.Graph, rows, cols int64, like *hop.Node) *hop.Node {
	z := g.DataGen(rows, cols, 0)
	inheritBlocks(z, like)
	return z
}

func inheritBlocks(n, from *hop.Node) {
	n.RowsPerBlock, n.ColsPerBlock = from.RowsPerBlock, from.ColsPerBlock
}

// replaceWith links repl at parent's position pos in place of hi and
// refreshes the parent. A replacement that could not be linked is released
// again.
func replaceWith(rule string, parent *hop.Node, pos int, hi, repl *hop.Node) (*hop.Node, bool, error) {
	if err := hop.Replace(parent, pos, repl); err != nil {
		repl.Graph().Discard(repl)
		return hi, false, editFailed(rule, parent, err)
	}
	parent.RefreshSize()
	return repl, true, nil
}

// rehang moves every parent of hi over to repl.
func rehang(rule string, hi, repl *hop.Node) (*hop.Node, bool, error) {
	if _, err := hop.Rehang(hi, repl); err != nil {
		return hi, false, editFailed(rule, hi, err)
	}
	return repl, true, nil
}

// shapesDiffer reports whether both shapes are known and not equal.
func shapesDiffer(a, b *hop.Node) bool {
	return a.DimsKnown() && b.DimsKnown() && !a.SameSize(b)
}

// diagnose reports a pattern the rules deliberately leave alone.
func diagnose(ctx context.Context, rule string, n *hop.Node, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	loggerFromContext(ctx).Warn("rewrite skipped", "rule", rule, "node", n.String(), "reason", msg)
	observability.Rewrite().OnDiagnostic(ctx, rule, msg)
}
