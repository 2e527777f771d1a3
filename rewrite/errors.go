package rewrite

import "fmt"

// MissingTemplateError reports an operation that was rewritten in the
// compute routine but has no entry in the template mapping.
type MissingTemplateError struct {
	Op    string
	Class string // set by Class and Run; empty when Synthesize is called directly
}

func (e *MissingTemplateError) Error() string {
	return fmt.Sprintf("no template for operation %q", e.Op)
}

// MalformedTemplateError reports a template that is not a single
// assignment to an attribute target.
type MalformedTemplateError struct {
	Op     string
	Reason string
}

func (e *MalformedTemplateError) Error() string {
	return fmt.Sprintf("malformed template for operation %q: %s", e.Op, e.Reason)
}
