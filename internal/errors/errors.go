// Package errors defines the error taxonomy used across the decompiler:
// stream, format, decompilation and logic errors (spec §7), each carrying
// enough location information to produce a single user-facing message
// naming the file, method descriptor and bytecode position when known.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a DecompileError by the layer that raised it.
type Kind string

const (
	// Stream errors.
	KindUnexpectedEOF Kind = "UnexpectedEOF"
	KindIOReadError    Kind = "IOReadError"

	// Format errors.
	KindWrongMagic            Kind = "WrongMagic"
	KindIllegalConstantKind   Kind = "IllegalConstantKind"
	KindIndexOutOfBounds      Kind = "IndexOutOfBounds"
	KindIllegalOpcode         Kind = "IllegalOpcode"
	KindInstructionFormat     Kind = "InstructionFormat"
	KindAttributeLengthMismatch Kind = "AttributeLengthMismatch"
	KindIllegalAttribute      Kind = "IllegalAttribute"
	KindInvalidTypeName       Kind = "InvalidTypeName"
	KindInvalidSignature      Kind = "InvalidSignature"
	KindIllegalMethodHeader   Kind = "IllegalMethodHeader"
	KindIllegalModifiers      Kind = "IllegalModifiers"

	// Decompilation errors.
	KindIllegalStackState     Kind = "IllegalStackState"
	KindEmptyStack            Kind = "EmptyStack"
	KindTypeSizeMismatch      Kind = "TypeSizeMismatch"
	KindIncompatibleTypes     Kind = "IncompatibleTypes"
	KindIllegalMethodDescriptor Kind = "IllegalMethodDescriptor"
	KindMalformedControlFlow  Kind = "MalformedControlFlow"
	KindBlockOutOfBounds      Kind = "BlockOutOfBounds"
	KindWrongConstantKind     Kind = "WrongConstantKind"

	// Logic errors (internal).
	KindAssertionFailure Kind = "AssertionFailure"
)

// DecompileError is the single error type surfaced across package
// boundaries. It is always constructed through one of the New* helpers so
// every instance carries a Kind.
type DecompileError struct {
	Kind   Kind
	File   string
	Method string // method name + descriptor, when known
	Pos    int    // bytecode position, -1 if not applicable
	cause  error
}

func (e *DecompileError) Error() string {
	msg := string(e.Kind)
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.cause.Error())
	}
	if e.File != "" {
		msg = fmt.Sprintf("%s (file=%s)", msg, e.File)
	}
	if e.Method != "" {
		msg = fmt.Sprintf("%s (method=%s)", msg, e.Method)
	}
	if e.Pos >= 0 {
		msg = fmt.Sprintf("%s (pos=%d)", msg, e.Pos)
	}
	return msg
}

// Unwrap exposes the wrapped cause so errors.Is/As work through a
// DecompileError boundary.
func (e *DecompileError) Unwrap() error { return e.cause }

// Format implements fmt.Formatter so that "%+v" on a DecompileError prints
// the originating stack trace captured by pkg/errors when --debug is set.
func (e *DecompileError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprint(s, e.Error())
			if st, ok := e.cause.(interface{ StackTrace() errors.StackTrace }); ok {
				fmt.Fprintf(s, "\n%+v", st.StackTrace())
			}
			return
		}
		fallthrough
	default:
		fmt.Fprint(s, e.Error())
	}
}

// New creates a DecompileError of the given kind with a formatted message,
// capturing a stack trace via pkg/errors for later --debug inspection.
func New(kind Kind, format string, args ...interface{}) *DecompileError {
	return &DecompileError{Kind: kind, Pos: -1, cause: errors.Errorf(format, args...)}
}

// Wrap attaches a Kind and stack trace to an existing error.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *DecompileError {
	return &DecompileError{Kind: kind, Pos: -1, cause: errors.Wrapf(cause, format, args...)}
}

// WithFile sets the file name on the error and returns it for chaining.
func (e *DecompileError) WithFile(file string) *DecompileError {
	e.File = file
	return e
}

// WithMethod sets the method name+descriptor on the error.
func (e *DecompileError) WithMethod(method string) *DecompileError {
	e.Method = method
	return e
}

// WithPos sets the bytecode position on the error.
func (e *DecompileError) WithPos(pos int) *DecompileError {
	e.Pos = pos
	return e
}

// Is reports whether err is a DecompileError of the given kind.
func Is(err error, kind Kind) bool {
	var de *DecompileError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
