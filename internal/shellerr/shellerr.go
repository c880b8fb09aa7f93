// Package shellerr defines the typed error taxonomy shared across the
// mini-shell: parse failures, unsupported syntax, builtin usage mistakes,
// spawn failures, timeouts, and I/O errors. Callers use errors.Is against
// the sentinels below rather than inspecting message text.
package shellerr

import "errors"

// Sentinel classes. Wrap with fmt.Errorf("%w: ...", Class, ...) at the
// point of failure so the class survives past formatting.
var (
	// Parse marks a malformed command token or unknown redirect shape.
	Parse = errors.New("internal shell error")

	// UnsupportedOperator marks background execution or any other
	// syntax this shell deliberately does not implement.
	UnsupportedOperator = errors.New("unsupported operator")

	// BuiltinUsage marks a missing operand or conflicting flags on a
	// builtin invocation. Local to the builtin; does not abort the
	// enclosing sequence.
	BuiltinUsage = errors.New("builtin usage error")

	// Spawn marks a failure to create a child process.
	Spawn = errors.New("spawn error")

	// Timeout marks evaluation aborted by the timeout supervisor.
	Timeout = errors.New("timeout error")

	// IO marks a redirect open/read/write failure.
	IO = errors.New("io error")
)

// ExitTimeout is the reserved exit code signalling the evaluator aborted
// due to time expiry (spec.md's "timeout sentinel").
const ExitTimeout = -999

// ExitInternal is returned for ParseError/UnsupportedOperator class
// failures that abort the current Sequence.
const ExitInternal = -1
