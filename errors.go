package xlkinetics

import (
	"errors"
	"fmt"
)

// ErrMalformedInput indicates a source sheet lacks the extent a layout requires.
var ErrMalformedInput = errors.New("malformed input")

// ErrInvalidSheetName indicates a sheet name cannot be split into plate and treatment.
var ErrInvalidSheetName = errors.New("invalid sheet name")

// ErrSchema indicates blocks or tables whose columns do not line up.
var ErrSchema = errors.New("schema mismatch")

// ErrUnknownLayout is returned when a layout name is not registered.
var ErrUnknownLayout = errors.New("unknown layout")

// MalformedInputError reports a sheet that does not cover a window's offsets.
type MalformedInputError struct {
	Sheet  string
	Window string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed sheet %q (window %s): %s", e.Sheet, e.Window, e.Reason)
}

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

// InvalidSheetNameError reports a sheet name without the plate/treatment delimiter.
type InvalidSheetNameError struct {
	Sheet     string
	Delimiter string
}

func (e *InvalidSheetNameError) Error() string {
	return fmt.Sprintf("sheet name %q has no %q between plate and treatment", e.Sheet, e.Delimiter)
}

func (e *InvalidSheetNameError) Is(target error) bool { return target == ErrInvalidSheetName }

// SchemaError reports a column set that does not match the table being built.
type SchemaError struct {
	Table  string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("table %q: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("table %q column %q: %s", e.Table, e.Column, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// IOError wraps a failed read, write or relocation of a workbook.
type IOError struct {
	Op   string // "open", "read", "write", "relocate", ...
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
