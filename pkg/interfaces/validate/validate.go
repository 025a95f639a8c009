package validate

import "github.com/goliatone/go-configvault/pkg/domain"

// Issue describes a single problem a validator found in record content.
type Issue struct {
	Line    int
	Message string
}

// Result reports the outcome of validating content against its format.
type Result struct {
	Valid  bool
	Issues []Issue
}

// Validator checks that content parses as the declared format. The engine
// only consumes this capability; concrete parsers live with the host or in
// validator libraries it plugs in.
type Validator interface {
	Validate(format domain.Format, content []byte) (Result, error)
}

// Func adapts a plain function into a Validator.
type Func func(format domain.Format, content []byte) (Result, error)

var _ Validator = (Func)(nil)

func (f Func) Validate(format domain.Format, content []byte) (Result, error) {
	return f(format, content)
}

// Nop accepts every payload (validation disabled).
type Nop struct{}

var _ Validator = (*Nop)(nil)

func (n *Nop) Validate(format domain.Format, content []byte) (Result, error) {
	return Result{Valid: true}, nil
}
