package rewrite

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dmlopt/pkg/hop"
	"github.com/matzehuels/dmlopt/pkg/observability"
)

// pass is one traversal over the roots. The done set is owned by the pass,
// so nothing carries over to the next pass or invocation.
type pass struct {
	name         string
	descendFirst bool
	rules        []Rule
	logger       *log.Logger
	hooks        observability.RewriteHooks
	done         map[hop.ID]bool
	stats        *Stats
}

func (p *pass) run(ctx context.Context, roots []*hop.Node) error {
	for _, root := range roots {
		if err := p.visit(ctx, root); err != nil {
			return err
		}
	}
	return nil
}

// visit processes the input edges of n by position. Top-down passes rewrite
// a child before descending into whatever replaced it; bottom-up passes
// descend first and rewrite afterwards.
func (p *pass) visit(ctx context.Context, n *hop.Node) error {
	if p.done[n.ID()] {
		return nil
	}
	for i := 0; i < n.NumInputs(); i++ {
		if p.descendFirst {
			if err := p.visit(ctx, n.Input(i)); err != nil {
				return err
			}
		}

		hi, err := p.apply(ctx, n, n.Input(i), i)
		if err != nil {
			return err
		}

		if !p.descendFirst {
			if err := p.visit(ctx, hi); err != nil {
				return err
			}
		}
	}
	p.done[n.ID()] = true
	return nil
}

// apply folds the rule list over one child.
func (p *pass) apply(ctx context.Context, parent, hi *hop.Node, pos int) (*hop.Node, error) {
	for _, rule := range p.rules {
		next, applied, err := rule.Apply(ctx, parent, hi, pos)
		if err != nil {
			return hi, err
		}
		if !applied {
			continue
		}
		p.logger.Debug("applied rewrite", "rule", rule.Name(), "node", hi.String(), "into", next.String(), "pass", p.name)
		p.hooks.OnRuleApplied(ctx, rule.Name())
		p.stats.Applied[rule.Name()]++
		hi = next
	}
	return hi, nil
}
