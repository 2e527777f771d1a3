package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInspectSourceOrder(t *testing.T) {
	var names []string
	Inspect(sampleClass(), func(n Node) bool {
		if nm, ok := n.(*Name); ok {
			names = append(names, nm.ID)
		}
		return true
	})
	assert.Equal(t, []string{"self", "nn", "F", "x"}, names)
}

func TestInspectPrune(t *testing.T) {
	mod := &Module{Body: []Statement{sampleClass()}}
	var calls int
	Inspect(mod, func(n Node) bool {
		if fd, ok := n.(*FuncDef); ok && fd.Name == "__init__" {
			return false
		}
		if _, ok := n.(*Call); ok {
			calls++
		}
		return true
	})
	assert.Equal(t, 1, calls, "calls under the pruned initializer are skipped")
}
