package ast

// Check validates an AST without modifying it.
type Check interface {
	Name() string
	Check(mod *Module) error
}

// CheckFunc adapts a named function to the Check interface.
type CheckFunc struct {
	N string
	F func(*Module) error
}

func (c CheckFunc) Name() string            { return c.N }
func (c CheckFunc) Check(mod *Module) error { return c.F(mod) }

// CheckChain runs checks in order, stopping at the first error.
type CheckChain []Check

// Run executes each check in sequence. Returns nil if all pass.
func (cc CheckChain) Run(mod *Module) error {
	for _, c := range cc {
		if err := c.Check(mod); err != nil {
			return err
		}
	}
	return nil
}
