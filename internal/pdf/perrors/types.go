// Package perrors is the typed error taxonomy used for every PDF failure
// this module distinguishes: the fatal construction failures document.New
// returns to the caller, and the soft per-item failures imageextract and
// annotextract collect while skipping the affected page content.
package perrors

import "fmt"

// ErrorType categorizes a PDFError. Only the kinds this module's error
// policy actually distinguishes are represented: fatal document-construction
// failures, and the two soft per-item skip reasons (image decode,
// annotation resolution).
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeInvalidStructure
	ErrorTypeMalformedObject
	ErrorTypeMalformedPage
	ErrorTypeInvalidImage
	ErrorTypeInvalidAnnotation
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeInvalidStructure:
		return "INVALID_STRUCTURE"
	case ErrorTypeMalformedObject:
		return "MALFORMED_OBJECT"
	case ErrorTypeMalformedPage:
		return "MALFORMED_PAGE"
	case ErrorTypeInvalidImage:
		return "INVALID_IMAGE"
	case ErrorTypeInvalidAnnotation:
		return "INVALID_ANNOTATION"
	default:
		return "UNKNOWN"
	}
}

// PDFError pairs a typed failure with the page it occurred on (0 when not
// page-scoped) and the underlying cause, if any.
type PDFError struct {
	Type ErrorType
	Page int
	err  error
}

func (e *PDFError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("[%s] page %d: %s", e.Type, e.Page, e.err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.err)
}

func (e *PDFError) Unwrap() error { return e.err }

// NewPDFError creates a PDFError from a message.
func NewPDFError(errorType ErrorType, message string) *PDFError {
	return &PDFError{Type: errorType, err: fmt.Errorf("%s", message)}
}

// WrapError wraps an existing error as a PDFError of the given type.
func WrapError(errorType ErrorType, err error) *PDFError {
	return &PDFError{Type: errorType, err: err}
}

// WithPage tags the error with the page it was produced on.
func (e *PDFError) WithPage(page int) *PDFError {
	e.Page = page
	return e
}

// ErrorCollection accumulates soft per-item failures across an extraction
// run. It is never part of an extractor's returned data; callers that want
// it log a Summary instead.
type ErrorCollection struct {
	errors []*PDFError
}

// NewErrorCollection returns an empty collection.
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{}
}

// Add records err, which must not be nil.
func (ec *ErrorCollection) Add(err *PDFError) {
	ec.errors = append(ec.errors, err)
}

// Count returns the number of recorded errors.
func (ec *ErrorCollection) Count() int {
	return len(ec.errors)
}

// Errors returns the recorded errors in the order they were added.
func (ec *ErrorCollection) Errors() []*PDFError {
	return ec.errors
}

// Merge appends other's errors onto ec.
func (ec *ErrorCollection) Merge(other *ErrorCollection) {
	if other == nil {
		return
	}
	ec.errors = append(ec.errors, other.errors...)
}

// Summary returns a short human-readable count, grouped by type, suitable
// for a single log line.
func (ec *ErrorCollection) Summary() string {
	if len(ec.errors) == 0 {
		return "no soft failures"
	}
	counts := make(map[ErrorType]int)
	for _, err := range ec.errors {
		counts[err.Type]++
	}
	return fmt.Sprintf("%d soft failure(s): %v", len(ec.errors), counts)
}
