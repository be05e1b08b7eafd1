package sqlctx

import (
	"errors"
	"fmt"
)

var (
	ErrNoViewName  = errors.New("sqlctx: no view name found, please pass a view name")
	ErrNoTableName = errors.New("sqlctx: no table name found, please pass a table name")

	errNoResult = errors.New("no result")
)

// InvalidNameError is returned when a table or view name is set to the empty string.
type InvalidNameError struct {
	Kind string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("sqlctx: expected %s name, got none", e.Kind)
}

// ConnectionError is returned when the engine can not be opened at Location.
type ConnectionError struct {
	Location string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("sqlctx: %s: %s", e.Location, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ExecutionError is returned when the engine fails to execute or materialize Statement.
type ExecutionError struct {
	Statement string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("sqlctx: %s: %s", e.Statement, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
