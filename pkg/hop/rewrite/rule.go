package rewrite

import (
	"context"

	"github.com/samber/lo"

	"github.com/matzehuels/dmlopt/pkg/errors"
	"github.com/matzehuels/dmlopt/pkg/hop"
)

// Rule is a local rewrite of one input edge.
//
// Apply inspects hi, the input of parent at position pos. If the rule does
// not match it returns hi, false. Otherwise it edits the graph so that the
// replacement sits at parent's position pos, refreshes the sizes of the
// edited parents and returns the replacement, true. The replacement is fed
// to the next rule in the chain.
type Rule interface {
	Name() string
	Apply(ctx context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error)
}

// RuleFunc is the signature of a rule body.
type RuleFunc func(ctx context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error)

type namedRule struct {
	name string
	fn   RuleFunc
}

func (r namedRule) Name() string { return r.name }

func (r namedRule) Apply(ctx context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	return r.fn(ctx, parent, hi, pos)
}

// NewRule wraps fn as a [Rule] called name.
func NewRule(name string, fn RuleFunc) Rule {
	return namedRule{name: name, fn: fn}
}

// Rule names, in catalog order.
const (
	RemoveEmptyRightIndexing       = "removeEmptyRightIndexing"
	RemoveUnnecessaryRightIndexing = "removeUnnecessaryRightIndexing"
	RemoveEmptyLeftIndexing        = "removeEmptyLeftIndexing"
	RemoveUnnecessaryLeftIndexing  = "removeUnnecessaryLeftIndexing"
	SimplifyColwiseAggregate       = "simplifyColwiseAggregate"
	SimplifyRowwiseAggregate       = "simplifyRowwiseAggregate"
	SimplifyEmptyAggregate         = "simplifyEmptyAggregate"
	SimplifyEmptyUnaryOperation    = "simplifyEmptyUnaryOperation"
	SimplifyEmptyReorgOperation    = "simplifyEmptyReorgOperation"
	SimplifyEmptyMatrixMult        = "simplifyEmptyMatrixMult"
	SimplifyIdentityRepMatrixMult  = "simplifyIdentityRepMatrixMult"
	SimplifyScalarMatrixMult       = "simplifyScalarMatrixMult"
	SimplifyMatrixMultDiag         = "simplifyMatrixMultDiag"
	SimplifyDiagMatrixMult         = "simplifyDiagMatrixMult"
	ReorderMinusMatrixMult         = "reorderMinusMatrixMult"
	SimplifyEmptyBinaryOperation   = "simplifyEmptyBinaryOperation"
)

// DefaultRules returns the rule catalog in application order. Empty-operand
// checks come before the matrix-multiply conversions, which come before the
// reordering of negations.
func DefaultRules() []Rule {
	return []Rule{
		NewRule(RemoveEmptyRightIndexing, removeEmptyRightIndexing),
		NewRule(RemoveUnnecessaryRightIndexing, removeUnnecessaryRightIndexing),
		NewRule(RemoveEmptyLeftIndexing, removeEmptyLeftIndexing),
		NewRule(RemoveUnnecessaryLeftIndexing, removeUnnecessaryLeftIndexing),
		NewRule(SimplifyColwiseAggregate, simplifyColwiseAggregate),
		NewRule(SimplifyRowwiseAggregate, simplifyRowwiseAggregate),
		NewRule(SimplifyEmptyAggregate, simplifyEmptyAggregate),
		NewRule(SimplifyEmptyUnaryOperation, simplifyEmptyUnaryOperation),
		NewRule(SimplifyEmptyReorgOperation, simplifyEmptyReorgOperation),
		NewRule(SimplifyEmptyMatrixMult, simplifyEmptyMatrixMult),
		NewRule(SimplifyIdentityRepMatrixMult, simplifyIdentityRepMatrixMult),
		NewRule(SimplifyScalarMatrixMult, simplifyScalarMatrixMult),
		NewRule(SimplifyMatrixMultDiag, simplifyMatrixMultDiag),
		NewRule(SimplifyDiagMatrixMult, simplifyDiagMatrixMult),
		NewRule(ReorderMinusMatrixMult, reorderMinusMatrixMult),
		NewRule(SimplifyEmptyBinaryOperation, simplifyEmptyBinaryOperation),
	}
}

// RuleNames returns the names of rules in order.
func RuleNames(rules []Rule) []string {
	return lo.Map(rules, func(r Rule, _ int) string { return r.Name() })
}

// Without returns rules minus the named ones, keeping the order of the rest.
// Unknown names are rejected so that a typo in a configuration file does not
// silently keep a rule enabled.
func Without(rules []Rule, names ...string) ([]Rule, error) {
	known := RuleNames(rules)
	if unknown := lo.Without(names, known...); len(unknown) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown rule %q", unknown[0])
	}
	return lo.Reject(rules, func(r Rule, _ int) bool { return lo.Contains(names, r.Name()) }), nil
}
