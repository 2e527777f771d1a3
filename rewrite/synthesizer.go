package rewrite

import "github.com/rubiojr/layerize/ast"

// Synthesize appends one initializer statement per log entry, in log
// order. Each statement is a copy of the operation's template with its
// target renamed to the entry's indexed name.
//
// A missing or malformed template stops synthesis; statements appended for
// earlier entries stay in place and the run must be treated as failed.
func Synthesize(init *ast.FuncDef, log Log, tmpl Templates) error {
	for _, e := range log {
		st, err := tmpl.instantiate(e.Op, e.Name())
		if err != nil {
			return err
		}
		init.Body = append(init.Body, st)
	}
	return nil
}
