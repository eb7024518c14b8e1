package repository

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity does not exist
	ErrNotFound = errors.New("entity not found")
	// ErrReferential is returned for dangling or blocking entity references
	ErrReferential = errors.New("referential integrity violation")
	// ErrCycle is returned when an edge insert would create a cycle
	ErrCycle = errors.New("operation would create a cycle")
	// ErrInUse is returned when a deletion is blocked by active references
	ErrInUse = errors.New("entity is in use")
	// ErrInvalidOperation is returned for operations the model forbids
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrInconsistentState is returned when recomputation detects contradictory inputs
	ErrInconsistentState = errors.New("inconsistent model state")
	// ErrDuplicate is returned when a unique name or binding already exists
	ErrDuplicate = errors.New("duplicate entity")
	// ErrClosed is returned for operations on a closed repository
	ErrClosed = errors.New("repository is closed")
)

// ModelError provides structured error information for model operations.
type ModelError struct {
	Op      string // Operation that failed (e.g., "CreateElement", "DeleteRelationship")
	Entity  string // Entity kind (e.g., "element", "relationship", "diagram")
	ID      uint64 // Entity ID (if applicable)
	Name    string // Entity name (for named entities such as documents)
	Cause   error  // Underlying sentinel error
	Context string // Additional context
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	switch {
	case e.ID != 0 && e.Context != "":
		return fmt.Sprintf("%s %s %d (%s): %v", e.Op, e.Entity, e.ID, e.Context, e.Cause)
	case e.ID != 0:
		return fmt.Sprintf("%s %s %d: %v", e.Op, e.Entity, e.ID, e.Cause)
	case e.Name != "" && e.Context != "":
		return fmt.Sprintf("%s %s %q (%s): %v", e.Op, e.Entity, e.Name, e.Context, e.Cause)
	case e.Name != "":
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.Name, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *ModelError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *ModelError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building ModelErrors.
type ErrorBuilder struct {
	err ModelError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: ModelError{Op: op}}
}

// Element sets the entity to "element" with the given ID.
func (b *ErrorBuilder) Element(id uint64) *ErrorBuilder {
	b.err.Entity = "element"
	b.err.ID = id
	return b
}

// Relationship sets the entity to "relationship" with the given ID.
func (b *ErrorBuilder) Relationship(id uint64) *ErrorBuilder {
	b.err.Entity = "relationship"
	b.err.ID = id
	return b
}

// Diagram sets the entity to "diagram" with the given ID.
func (b *ErrorBuilder) Diagram(id uint64) *ErrorBuilder {
	b.err.Entity = "diagram"
	b.err.ID = id
	return b
}

// Document sets the entity to "document" with the given name.
func (b *ErrorBuilder) Document(name string) *ErrorBuilder {
	b.err.Entity = "document"
	b.err.Name = name
	return b
}

// Entity sets an arbitrary entity kind and name.
func (b *ErrorBuilder) Entity(kind, name string) *ErrorBuilder {
	b.err.Entity = kind
	b.err.Name = name
	return b
}

// Context adds free-form context to the error.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying sentinel error and returns the built error.
func (b *ErrorBuilder) Cause(err error) error {
	b.err.Cause = err
	return &b.err
}
