// Package evaluator walks the ast.Node tree produced by the parser,
// evaluating Sequence nodes with short-circuit ;/&&/|| semantics and
// dispatching Pipeline leaves to the pipeline executor. It is the single
// caller that checks the timeout supervisor between steps, per
// spec.md §4.5.
package evaluator

import (
	"github.com/shtestcore/shtest/internal/ast"
	"github.com/shtestcore/shtest/internal/pipeline"
	"github.com/shtestcore/shtest/internal/shellenv"
	"github.com/shtestcore/shtest/internal/shellerr"
	"github.com/shtestcore/shtest/internal/timeoutsup"
)

// StepResult records one Pipeline leaf's outcome in visitation order, so
// a caller can render a transcript of every command a Sequence actually
// ran (short-circuited branches never appear).
type StepResult struct {
	Pipeline *ast.Pipeline
	Result   *pipeline.Result
}

// Outcome is the result of evaluating a whole Sequence tree: the final
// exit code and every Pipeline leaf actually executed.
type Outcome struct {
	ExitCode int
	Steps    []StepResult
}

// Run evaluates node against env, honoring sup's timeout between every
// pipeline dispatch. It starts sup's timer on first entry if the caller
// hasn't already.
func Run(env *shellenv.Env, node *ast.Node, sup *timeoutsup.Supervisor) (*Outcome, error) {
	sup.StartTimer()
	out := &Outcome{}
	exit, err := eval(env, node, sup, out)
	out.ExitCode = exit
	return out, err
}

// eval recursively evaluates node, appending every executed Pipeline leaf
// to out.Steps. Sequence nodes short-circuit: && skips Right when Left is
// nonzero, || skips Right when Left is zero, ; always runs both.
func eval(env *shellenv.Env, node *ast.Node, sup *timeoutsup.Supervisor, out *Outcome) (int, error) {
	if sup.TimeoutReached() {
		return shellerr.ExitTimeout, nil
	}

	if node.IsLeaf() {
		result, err := pipeline.Run(env, node.Pipe, sup)
		if err != nil {
			return shellerr.ExitInternal, err
		}
		out.Steps = append(out.Steps, StepResult{Pipeline: node.Pipe, Result: result})
		return result.ExitCode, nil
	}

	seq := node.Seq
	left, err := eval(env, seq.Left, sup, out)
	if err != nil {
		return left, err
	}

	switch seq.Op {
	case ast.SeqAnd:
		if left != 0 {
			return left, nil
		}
	case ast.SeqOr:
		if left == 0 {
			return left, nil
		}
	case ast.SeqThen:
		// always evaluates Right
	}

	return eval(env, seq.Right, sup, out)
}
