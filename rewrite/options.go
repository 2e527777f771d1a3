package rewrite

// Options names the identifiers the rewrite keys on.
type Options struct {
	Namespace   string // callee qualifier of the calls to rewrite, F in F.relu(x)
	Self        string // instance parameter name
	Initializer string // method receiving the synthesized fields
	Compute     string // method whose calls are rewritten
}

// DefaultOptions returns the PyTorch conventions.
func DefaultOptions() Options {
	return Options{
		Namespace:   "F",
		Self:        "self",
		Initializer: "__init__",
		Compute:     "forward",
	}
}
