package kernels

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrPrecondition     = errors.New("precondition violated")
	ErrInvalidShape     = errors.New("invalid shape")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrUnsupportedOp    = errors.New("unsupported operator")
	ErrUnsupportedAttr  = errors.New("unsupported attribute")
	ErrNoNodeInContext  = errors.New("generation context has no node")
	ErrNoGraphInContext = errors.New("generation context has no graph")
)

// NodeShader generates shader code for one kind of operation.
//
// Implementations must be pure: no I/O, no shared mutable state, and
// identical output for identical shapes.
type NodeShader interface {
	GenerateCode(ctx GenerationContext) (GeneratedCode, error)
}

// NodeShaderFunc adapts a function to NodeShader.
type NodeShaderFunc func(ctx GenerationContext) (GeneratedCode, error)

// GenerateCode calls f(ctx).
func (f NodeShaderFunc) GenerateCode(ctx GenerationContext) (GeneratedCode, error) {
	return f(ctx)
}

// GenerationError reports a failed node generation.
type GenerationError struct {
	Node   string // node name, or #id when unnamed
	OpType string
	Err    error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.Node, e.OpType, e.Err)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}
