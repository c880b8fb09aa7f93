// Package parser builds this shell's own Command/Pipeline/Sequence AST
// (internal/ast) out of a single shell command line. Tokenizing and
// quote-handling is delegated to mvdan.cc/sh/v3/syntax, the same parser
// library the rest of this repo's ecosystem uses to manipulate shell
// source (see the shellformat-style formatters it backs); this package
// walks only the small subset of its AST that spec.md permits and rejects
// everything else (background "&", here-docs, arithmetic, process
// substitution, control-flow keywords) with ast.ErrUnsupported. Brace
// patterns such as "{a,b}" are not expanded: they pass through as literal
// text. The result is a lexer adapter, not a POSIX-shell executor.
package parser

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/shtestcore/shtest/internal/ast"
)

// Parse parses a single logical shell line (already substitution-expanded)
// into this package's AST. pipefail is stamped onto every Pipeline built,
// per spec.md's "Pipefail flag inherited from config".
func Parse(line string, pipefail bool) (*ast.Node, error) {
	p := syntax.NewParser(syntax.Variant(syntax.LangBash))

	file, err := p.Parse(strings.NewReader(line), "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ast.ErrUnsupported, err)
	}

	if len(file.Stmts) == 0 {
		return nil, fmt.Errorf("%w: empty command", ast.ErrUnsupported)
	}
	if len(file.Stmts) == 1 {
		return stmtToNode(file.Stmts[0], pipefail)
	}

	// A sequence of top-level statements separated only by newlines/`;`
	// (the parser normalizes both) folds left-associatively into a chain
	// of `;` Sequence nodes, matching spec.md's "Left-associative by
	// construction" invariant.
	node, err := stmtToNode(file.Stmts[0], pipefail)
	if err != nil {
		return nil, err
	}
	for _, s := range file.Stmts[1:] {
		right, err := stmtToNode(s, pipefail)
		if err != nil {
			return nil, err
		}
		node = ast.SequenceNode(&ast.Sequence{Left: node, Right: right, Op: ast.SeqThen})
	}
	return node, nil
}

// stmtToNode converts one *syntax.Stmt into a Node. A Stmt is either a
// BinaryCmd (&&, ||, |) or a leaf command; background statements and any
// other compound command (if/for/while/case/function/subshell/block) are
// rejected.
func stmtToNode(s *syntax.Stmt, pipefail bool) (*ast.Node, error) {
	if s.Background {
		return nil, fmt.Errorf("%w: background execution (&)", ast.ErrUnsupported)
	}

	switch cmd := s.Cmd.(type) {
	case *syntax.BinaryCmd:
		return binaryCmdToNode(s, cmd, pipefail)
	case *syntax.CallExpr:
		pipe, err := callToPipeline(s, cmd, pipefail)
		if err != nil {
			return nil, err
		}
		return ast.PipelineNode(pipe), nil
	default:
		return nil, fmt.Errorf("%w: unsupported compound command", ast.ErrUnsupported)
	}
}

// binaryCmdToNode handles &&, ||, and the pipe chain (a flattened run of
// syntax.Pipe operators) by collecting consecutive Pipe-joined CallExprs
// into one Pipeline, and translating && / || into ast.Sequence nodes.
func binaryCmdToNode(s *syntax.Stmt, cmd *syntax.BinaryCmd, pipefail bool) (*ast.Node, error) {
	switch cmd.Op {
	case syntax.Pipe, syntax.PipeAll:
		stages, negate, err := collectPipeline(s, pipefail)
		if err != nil {
			return nil, err
		}
		return ast.PipelineNode(&ast.Pipeline{Stages: stages, Negate: negate, Pipefail: pipefail}), nil

	case syntax.AndStmt, syntax.OrStmt:
		left, err := stmtToNode(cmd.X, pipefail)
		if err != nil {
			return nil, err
		}
		right, err := stmtToNode(cmd.Y, pipefail)
		if err != nil {
			return nil, err
		}
		op := ast.SeqAnd
		if cmd.Op == syntax.OrStmt {
			op = ast.SeqOr
		}
		return ast.SequenceNode(&ast.Sequence{Left: left, Right: right, Op: op}), nil

	default:
		return nil, fmt.Errorf("%w: binary operator %s", ast.ErrUnsupported, cmd.Op)
	}
}

// collectPipeline flattens a left-leaning chain of syntax.Pipe BinaryCmds
// rooted at s into an ordered slice of *ast.Command stages.
func collectPipeline(s *syntax.Stmt, pipefail bool) ([]*ast.Command, bool, error) {
	var stages []*ast.Command
	negate := s.Negated

	var walk func(*syntax.Stmt) error
	walk = func(stmt *syntax.Stmt) error {
		bc, ok := stmt.Cmd.(*syntax.BinaryCmd)
		if ok && (bc.Op == syntax.Pipe || bc.Op == syntax.PipeAll) {
			if err := walk(bc.X); err != nil {
				return err
			}
			return walk(bc.Y)
		}
		call, ok := stmt.Cmd.(*syntax.CallExpr)
		if !ok {
			return fmt.Errorf("%w: non-command pipeline stage", ast.ErrUnsupported)
		}
		cmd, err := callToCommand(stmt, call)
		if err != nil {
			return err
		}
		stages = append(stages, cmd)
		return nil
	}

	if err := walk(s); err != nil {
		return nil, false, err
	}
	return stages, negate, nil
}

// callToPipeline wraps a single CallExpr as a one-stage Pipeline.
func callToPipeline(s *syntax.Stmt, call *syntax.CallExpr, pipefail bool) (*ast.Pipeline, error) {
	cmd, err := callToCommand(s, call)
	if err != nil {
		return nil, err
	}
	return &ast.Pipeline{Stages: []*ast.Command{cmd}, Negate: s.Negated, Pipefail: pipefail}, nil
}

// callToCommand converts argv words and the statement's redirect list into
// an ast.Command, classifying bare "*"/"?"/"[...]" words as Glob tokens.
func callToCommand(s *syntax.Stmt, call *syntax.CallExpr) (*ast.Command, error) {
	if len(call.Args) == 0 {
		return nil, fmt.Errorf("%w: empty command", ast.ErrUnsupported)
	}

	argv := make([]ast.Token, 0, len(call.Args))
	for _, w := range call.Args {
		lit, quoted, err := wordLiteral(w)
		if err != nil {
			return nil, err
		}
		kind := ast.Literal
		if !quoted && strings.ContainsAny(lit, "*?[") {
			kind = ast.Glob
		}
		argv = append(argv, ast.Token{Kind: kind, Value: lit, Literal: quoted})
	}

	redirs, err := translateRedirects(s.Redirs)
	if err != nil {
		return nil, err
	}

	return &ast.Command{Argv: argv, Redirs: redirs, Text: rawWords(call.Args)}, nil
}

// wordLiteral renders a *syntax.Word to its literal text. It reports
// whether the whole word was quoted (single- or double-quoted), in which
// case glob metacharacters inside it are literal, not patterns.
func wordLiteral(w *syntax.Word) (string, bool, error) {
	var b strings.Builder
	quoted := len(w.Parts) > 0
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			b.WriteString(p.Value)
			quoted = false
		case *syntax.SglQuoted:
			b.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				if lit, ok := inner.(*syntax.Lit); ok {
					b.WriteString(lit.Value)
				}
			}
		default:
			return "", false, fmt.Errorf("%w: unsupported word expansion", ast.ErrUnsupported)
		}
	}
	return b.String(), quoted, nil
}

func rawWords(words []*syntax.Word) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		lit, _, _ := wordLiteral(w)
		parts = append(parts, lit)
	}
	return strings.Join(parts, " ")
}

// translateRedirects converts syntax.Redirect nodes into ast.Redirect,
// rejecting here-docs and the other shapes spec.md §4.3 does not define.
func translateRedirects(redirs []*syntax.Redirect) ([]ast.Redirect, error) {
	out := make([]ast.Redirect, 0, len(redirs))
	for _, r := range redirs {
		fd := 0
		if r.N != nil {
			fmt.Sscanf(r.N.Value, "%d", &fd)
		}

		target, _, err := wordLiteral(r.Word)
		if err != nil {
			return nil, err
		}

		switch r.Op {
		case syntax.RdrOut, syntax.ClbOut:
			out = append(out, ast.Redirect{Op: ast.RedirOut, FD: fd, Target: target})
		case syntax.AppOut:
			out = append(out, ast.Redirect{Op: ast.RedirAppend, FD: fd, Target: target})
		case syntax.RdrIn:
			out = append(out, ast.Redirect{Op: ast.RedirIn, FD: fd, Target: target})
		case syntax.DplOut, syntax.DplIn:
			op := ast.RedirDup
			if r.Op == syntax.DplOut && r.N == nil &&
				target != "0" && target != "1" && target != "2" && target != "-" {
				op = ast.RedirBoth // unqualified ">& file"
			}
			out = append(out, ast.Redirect{Op: op, FD: fd, Target: target})
		case syntax.RdrAll, syntax.AppAll:
			out = append(out, ast.Redirect{Op: ast.RedirBoth, FD: fd, Target: target})
		default:
			return nil, fmt.Errorf("%w: redirect operator %s", ast.ErrUnsupported, r.Op)
		}
	}
	return out, nil
}
