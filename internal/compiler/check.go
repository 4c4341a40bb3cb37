package compiler

import (
	"errors"
	"fmt"

	"github.com/born-ml/kernelgen/internal/kernels"
)

// Common errors.
var (
	ErrUnterminatedPlaceholder = errors.New("unterminated placeholder")
	ErrMalformedPlaceholder    = errors.New("malformed placeholder")
	ErrDanglingPlaceholder     = errors.New("placeholder does not match any parameter or tensor")
	ErrUnusedParameter         = errors.New("parameter is never referenced")
	ErrDuplicateParameter      = errors.New("duplicate parameter name")
	ErrInvalidParameter        = errors.New("invalid parameter value")
	ErrShapeCount              = errors.New("tensor shape count mismatch")
	ErrEmptyWorkload           = errors.New("workload has a zero extent")
	ErrEmptyTensor             = errors.New("tensor has no elements")
)

// Check verifies that every placeholder in code resolves to a declared
// parameter or an in-range tensor accessor, and that every parameter is used.
//
// Auto I/O implicitly reads input_data_0 and writes output_data_0; those
// accessors are accounted for by Assemble and need not appear in the body.
func Check(code *kernels.GeneratedCode, numInputs, numOutputs int) error {
	if code.Output == kernels.Auto && numOutputs == 0 {
		return fmt.Errorf("%w: auto output needs an output tensor", ErrShapeCount)
	}
	params := make(map[string]bool, len(code.Parameters))
	for _, p := range code.Parameters {
		if !isIdentifier(p.Name) {
			return fmt.Errorf("%w: name %q", ErrInvalidParameter, p.Name)
		}
		if _, dup := params[p.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateParameter, p.Name)
		}
		if _, err := literal(p.Value); err != nil {
			return fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		params[p.Name] = false
	}

	tokens, err := Placeholders(code.Source)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		switch tok.Kind {
		case TokenParameter:
			if _, ok := params[tok.Name]; !ok {
				return fmt.Errorf("%w: $%s$", ErrDanglingPlaceholder, tok.Name)
			}
			params[tok.Name] = true
		case TokenInput:
			if tok.Index >= numInputs {
				return fmt.Errorf("%w: %s with %d inputs", ErrDanglingPlaceholder, tok.Name, numInputs)
			}
		case TokenOutput:
			if tok.Index >= numOutputs {
				return fmt.Errorf("%w: %s with %d outputs", ErrDanglingPlaceholder, tok.Name, numOutputs)
			}
		}
	}

	// Report in declaration order so the error is deterministic.
	for _, p := range code.Parameters {
		if !params[p.Name] {
			return fmt.Errorf("%w: %q", ErrUnusedParameter, p.Name)
		}
	}
	return nil
}
