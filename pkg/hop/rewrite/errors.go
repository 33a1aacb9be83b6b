package rewrite

import (
	"fmt"

	"github.com/matzehuels/dmlopt/pkg/errors"
	"github.com/matzehuels/dmlopt/pkg/hop"
)

// RuleError reports a rule that could not complete on a node. It unwraps to
// an [*errors.Error], so errors.Is(err, errors.ErrCodeStructural) identifies
// graphs whose metadata contradicts a matched pattern.
type RuleError struct {
	Rule  string
	Node  hop.ID
	Cause *errors.Error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s on node %d: %v", e.Rule, e.Node, e.Cause)
}

func (e *RuleError) Unwrap() error { return e.Cause }

func structural(rule string, n *hop.Node, format string, args ...any) error {
	return &RuleError{
		Rule:  rule,
		Node:  n.ID(),
		Cause: errors.New(errors.ErrCodeStructural, "%s: %s", n, fmt.Sprintf(format, args...)),
	}
}

// checkArity rejects a matched node whose input count does not fit its
// operator.
func checkArity(rule string, n *hop.Node) error {
	if err := hop.CheckArity(n); err != nil {
		return &RuleError{
			Rule:  rule,
			Node:  n.ID(),
			Cause: errors.Wrap(errors.ErrCodeStructural, err, "malformed %s", n),
		}
	}
	return nil
}

func editFailed(rule string, n *hop.Node, err error) error {
	return &RuleError{
		Rule:  rule,
		Node:  n.ID(),
		Cause: errors.Wrap(errors.ErrCodeInternal, err, "edit of %s failed", n),
	}
}
