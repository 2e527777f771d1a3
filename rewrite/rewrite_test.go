package rewrite

import (
	"errors"
	"strings"
	"testing"

	"github.com/rubiojr/layerize/ast"
	"github.com/rubiojr/layerize/parser"
	"github.com/rubiojr/layerize/printer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const netSource = `class Net(nn.Module):
    def __init__(self):
        self.conv2 = nn.Conv2d(20, 50.5, 1)
        self.fc1 = nn.Liner(4*4*50, 500)
        self.fc2 = nn.Linear(500, 10)

    def forward(self, x):
        x = F.relu(self.conv1(x))
        x = F.max_pool2d(x, 2, 2)
        x = F.relu(self.conv2(x))
        x = F.max_pool2d(x, 2, 2)
        x = x.view(-1, 4*4*50)
        x = F.relu(self.fc1(x))
        x = self.fc2(x)
        return x
`

const netRewritten = `class Net(nn.Module):
    def __init__(self):
        self.conv2 = nn.Conv2d(20, 50.5, 1)
        self.fc1 = nn.Liner(4 * 4 * 50, 500)
        self.fc2 = nn.Linear(500, 10)
        self.relu1 = nn.ReLU()
        self.max_pool2d1 = lambda x, y, z: nn.MaxPool2d((y, z))(x)
        self.relu2 = nn.ReLU()
        self.max_pool2d2 = lambda x, y, z: nn.MaxPool2d((y, z))(x)
        self.relu3 = nn.ReLU()

    def forward(self, x):
        x = self.relu1(self.conv1(x))
        x = self.max_pool2d1(x, 2, 2)
        x = self.relu2(self.conv2(x))
        x = self.max_pool2d2(x, 2, 2)
        x = x.view(-1, 4 * 4 * 50)
        x = self.relu3(self.fc1(x))
        x = self.fc2(x)
        return x
`

func parse(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := parser.ParseSource(src, "net.py")
	require.NoError(t, err)
	return mod
}

func templates(t *testing.T, srcs map[string]string) Templates {
	t.Helper()
	m := make(map[string]ast.Statement, len(srcs))
	for op, src := range srcs {
		st, err := parser.ParseStatement(src)
		require.NoError(t, err)
		m[op] = st
	}
	tmpl, err := NewTemplates(m)
	require.NoError(t, err)
	return tmpl
}

func netTemplates(t *testing.T) Templates {
	return templates(t, map[string]string{
		"relu":       "self.relu = nn.ReLU()",
		"max_pool2d": "self.max_pool2d = lambda x, y, z: nn.MaxPool2d((y,z))(x)",
	})
}

// unitClass builds a class whose initializer and forward bodies are the
// given source lines.
func unitClass(t *testing.T, init, forward []string) *ast.ClassDef {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("class Net(nn.Module):\n    def __init__(self):\n")
	if len(init) == 0 {
		init = []string{"pass"}
	}
	for _, l := range init {
		sb.WriteString("        " + l + "\n")
	}
	sb.WriteString("    def forward(self, x):\n")
	for _, l := range forward {
		sb.WriteString("        " + l + "\n")
	}
	mod := parse(t, sb.String())
	return mod.Body[0].(*ast.ClassDef)
}

func methodSource(t *testing.T, cls *ast.ClassDef, name string) string {
	t.Helper()
	fd := ast.NewFactory().Method(cls, name)
	require.NotNil(t, fd)
	return printer.Stmt(fd)
}

func TestRunNet(t *testing.T) {
	mod := parse(t, netSource)
	res, err := Run(mod, DefaultOptions(), netTemplates(t))
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	assert.Equal(t, Log{
		{"relu", 1}, {"max_pool2d", 1}, {"relu", 2}, {"max_pool2d", 2}, {"relu", 3},
	}, res.Units[0].Log)
	assert.Equal(t, 5, res.Rewritten())
	assert.Equal(t, netRewritten, printer.Print(mod))
}

func TestTwoCallSitesSameOp(t *testing.T) {
	cls := unitClass(t,
		[]string{"self.fc2 = nn.Linear(500, 10)"},
		[]string{"x = F.relu(x)", "y = F.relu(y)", "return self.fc2(x)"},
	)
	res, err := Class(cls, DefaultOptions(), templates(t, map[string]string{"relu": "self.relu = nn.ReLU()"}))
	require.NoError(t, err)
	assert.Equal(t, Log{{"relu", 1}, {"relu", 2}}, res.Log)

	fwd := methodSource(t, cls, "forward")
	assert.Contains(t, fwd, "x = self.relu1(x)")
	assert.Contains(t, fwd, "y = self.relu2(y)")
	assert.Contains(t, fwd, "return self.fc2(x)")

	init := methodSource(t, cls, "__init__")
	assert.True(t, strings.HasSuffix(init,
		"    self.fc2 = nn.Linear(500, 10)\n"+
			"    self.relu1 = nn.ReLU()\n"+
			"    self.relu2 = nn.ReLU()\n"), init)
}

func TestDeclaredIndexedAttributeIsSkipped(t *testing.T) {
	cls := unitClass(t,
		[]string{"self.relu1 = nn.ReLU()"},
		[]string{"return F.relu(x)"},
	)
	attrs := CollectAttributes(ast.NewFactory().Method(cls, "__init__"), "self")
	assert.True(t, attrs["relu1"])

	res, err := Class(cls, DefaultOptions(), templates(t, map[string]string{"relu": "self.relu = nn.ReLU()"}))
	require.NoError(t, err)
	assert.Equal(t, Log{{"relu", 2}}, res.Log)
	assert.Contains(t, methodSource(t, cls, "forward"), "return self.relu2(x)")
	assert.Contains(t, methodSource(t, cls, "__init__"), "self.relu2 = nn.ReLU()")
}

func TestMissingTemplate(t *testing.T) {
	cls := unitClass(t, nil, []string{"x = F.relu(x)", "x = F.gelu(x)", "return F.relu(x)"})
	_, err := Class(cls, DefaultOptions(), templates(t, map[string]string{"relu": "self.relu = nn.ReLU()"}))
	require.Error(t, err)

	var mt *MissingTemplateError
	require.True(t, errors.As(err, &mt))
	assert.Equal(t, "gelu", mt.Op)
	assert.Equal(t, "Net", mt.Class)
	assert.Equal(t, `class Net: no template for operation "gelu"`, err.Error())

	// compute is fully rewritten, the initializer stops short
	fwd := methodSource(t, cls, "forward")
	assert.NotContains(t, fwd, "F.")
	init := methodSource(t, cls, "__init__")
	assert.Contains(t, init, "self.relu1 = nn.ReLU()")
	assert.NotContains(t, init, "gelu1")
	assert.NotContains(t, init, "relu2")
}

// The inner call is rewritten first and takes index 1. The literal
// self.relu1(self.relu2(x)) sometimes quoted for this case contradicts
// the inner-first rule; the rule wins.
func TestNestedCallsPostOrder(t *testing.T) {
	cls := unitClass(t, nil, []string{"return F.relu(F.relu(x))"})
	res, err := Class(cls, DefaultOptions(), templates(t, map[string]string{"relu": "self.relu = nn.ReLU()"}))
	require.NoError(t, err)
	assert.Equal(t, Log{{"relu", 1}, {"relu", 2}}, res.Log)
	assert.Contains(t, methodSource(t, cls, "forward"), "return self.relu2(self.relu1(x))")
}

func TestUniqueness(t *testing.T) {
	cls := unitClass(t,
		[]string{"self.relu = nn.ReLU()", "self.relu3 = nn.ReLU()", "self.conv21 = None"},
		[]string{
			"x = F.relu(F.relu(x))",
			"x = F.conv2(x)",
			"x = F.relu(x) + F.relu(x)",
		},
	)
	init := ast.NewFactory().Method(cls, "__init__")
	declared := CollectAttributes(init, "self")

	res, err := Class(cls, DefaultOptions(), templates(t, map[string]string{
		"relu":  "self.relu = nn.ReLU()",
		"conv2": "self.conv2 = nn.Conv2d(1, 1, 1)",
	}))
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, e := range res.Log {
		name := e.Name()
		assert.False(t, seen[name], "duplicate %s", name)
		assert.False(t, declared[name], "%s collides with a declared attribute", name)
		seen[name] = true
	}
	assert.Equal(t, Log{{"relu", 2}, {"relu", 4}, {"conv2", 2}, {"relu", 5}, {"relu", 6}}, res.Log)
}

func TestUnrelatedIndexedAttributeKeepsIndexOne(t *testing.T) {
	cls := unitClass(t,
		[]string{"self.relu6 = nn.ReLU6()"},
		[]string{"return F.relu(x)"},
	)
	res, err := Class(cls, DefaultOptions(), templates(t, map[string]string{"relu": "self.relu = nn.ReLU()"}))
	require.NoError(t, err)
	assert.Equal(t, Log{{"relu", 1}}, res.Log)
	assert.Contains(t, methodSource(t, cls, "forward"), "return self.relu1(x)")
}

func TestSynthesizedNamesUniqueAcrossOps(t *testing.T) {
	forward := []string{"x = F.relu6(x)"}
	for range 61 {
		forward = append(forward, "x = F.relu(x)")
	}
	cls := unitClass(t, nil, forward)
	res, err := Class(cls, DefaultOptions(), templates(t, map[string]string{
		"relu":  "self.relu = nn.ReLU()",
		"relu6": "self.relu6 = nn.ReLU6()",
	}))
	require.NoError(t, err)
	require.Len(t, res.Log, 62)
	assert.Equal(t, Entry{"relu6", 1}, res.Log[0])
	assert.Equal(t, Entry{"relu", 62}, res.Log[61])

	attrs := map[string]int{}
	for _, st := range ast.NewFactory().Method(cls, "__init__").Body {
		if asg, ok := st.(*ast.Assign); ok {
			attrs[asg.Targets[0].(*ast.Attribute).Attr]++
		}
	}
	assert.Len(t, attrs, 62)
	for name, n := range attrs {
		assert.Equal(t, 1, n, "%s assigned more than once", name)
	}
}

func TestCountMonotonicity(t *testing.T) {
	cls := unitClass(t,
		[]string{"self.relu = nn.ReLU()"},
		[]string{"x = F.relu(x)", "x = F.tanh(x)", "x = F.relu(x)", "return F.tanh(F.relu(x))"},
	)
	res, err := Class(cls, DefaultOptions(), templates(t, map[string]string{
		"relu": "self.relu = nn.ReLU()",
		"tanh": "self.tanh = nn.Tanh()",
	}))
	require.NoError(t, err)

	indices := map[string][]int{}
	for _, e := range res.Log {
		indices[e.Op] = append(indices[e.Op], e.Index)
	}
	assert.Equal(t, []int{2, 3, 4}, indices["relu"])
	assert.Equal(t, []int{1, 2}, indices["tanh"])
}

func TestInitializerCompleteness(t *testing.T) {
	mod := parse(t, netSource)
	cls := mod.Body[0].(*ast.ClassDef)
	init := ast.NewFactory().Method(cls, "__init__")
	before := len(init.Body)

	res, err := Class(cls, DefaultOptions(), netTemplates(t))
	require.NoError(t, err)
	require.Len(t, init.Body, before+len(res.Log))
	for i, e := range res.Log {
		asg := init.Body[before+i].(*ast.Assign)
		assert.Equal(t, e.Name(), asg.Targets[0].(*ast.Attribute).Attr)
	}
}

func TestNoMatchesLeavesTreeUnchanged(t *testing.T) {
	src := `class Net(nn.Module):
    def __init__(self):
        self.fc = nn.Linear(1, 1)

    def forward(self, x):
        x = self.fc(x)
        x = torch.relu(x)
        x = G.relu(x)
        x = a().relu(x)
        x = F.nn.relu(x)
        return relu(F)
`
	mod := parse(t, src)
	want := printer.Print(mod)
	res, err := Run(mod, DefaultOptions(), Templates{})
	require.NoError(t, err)
	assert.Empty(t, res.Units[0].Log)
	assert.Equal(t, want, printer.Print(mod))
}

func TestNamespaceDisappears(t *testing.T) {
	src := `class Net(nn.Module):
    def __init__(self):
        pass

    def forward(self, x, mask=None):
        if F.relu(x).sum() > 0:
            x = F.dropout(x, p=F.sigmoid(x).mean())
        for i in range(3):
            x = F.relu(x) if F.relu(x) else x
        y = lambda z: F.tanh(z)
        def inner(a):
            return F.relu(a)
        return {'out': inner(x), **F.softmax(x)}
`
	mod := parse(t, src)
	tmpl := templates(t, map[string]string{
		"relu":    "self.relu = nn.ReLU()",
		"dropout": "self.dropout = nn.Dropout()",
		"sigmoid": "self.sigmoid = nn.Sigmoid()",
		"tanh":    "self.tanh = nn.Tanh()",
		"softmax": "self.softmax = nn.Softmax()",
	})
	opts := DefaultOptions()
	require.Error(t, NamespaceFreeCheck(opts).Check(mod))

	_, err := Run(mod, opts, tmpl)
	require.NoError(t, err)
	assert.NoError(t, NamespaceFreeCheck(opts).Check(mod))
}

func TestRewriteOrder(t *testing.T) {
	cls := unitClass(t, nil, []string{
		"x = F.a(F.b(x), F.c(y), k=F.d(z))",
		"y = F.e(x) if F.f(x) else F.g(x)",
		"return F.h(x)(F.i(y))",
	})
	rw := &Rewriter{Namespace: "F", Self: "self", Counters: NewCounters(nil)}
	log := rw.Rewrite(ast.NewFactory().Method(cls, "forward"))
	var ops []string
	for _, e := range log {
		ops = append(ops, e.Op)
	}
	assert.Equal(t, []string{"b", "c", "d", "a", "f", "e", "g", "h", "i"}, ops)
}

func TestCustomOptions(t *testing.T) {
	src := `class Block:
    def setup(me):
        pass

    def call(me, x):
        return nnf.relu(x)
`
	mod := parse(t, src)
	opts := Options{Namespace: "nnf", Self: "me", Initializer: "setup", Compute: "call"}
	_, err := Run(mod, opts, templates(t, map[string]string{"relu": "me.relu = nn.ReLU()"}))
	require.NoError(t, err)
	out := printer.Print(mod)
	assert.Contains(t, out, "return me.relu1(x)")
	assert.Contains(t, out, "me.relu1 = nn.ReLU()")
}

func TestRunSkipsIncompleteClasses(t *testing.T) {
	src := `class Config:
    x = 1

class OnlyInit:
    def __init__(self):
        pass

class Net(nn.Module):
    def __init__(self):
        pass

    def forward(self, x):
        return F.relu(x)
`
	mod := parse(t, src)
	res, err := Run(mod, DefaultOptions(), templates(t, map[string]string{"relu": "self.relu = nn.ReLU()"}))
	require.NoError(t, err)
	require.Len(t, res.Units, 3)
	assert.True(t, res.Units[0].Skipped)
	assert.Equal(t, "no __init__ or forward method", res.Units[0].Reason)
	assert.True(t, res.Units[1].Skipped)
	assert.Equal(t, "no forward method", res.Units[1].Reason)
	assert.False(t, res.Units[2].Skipped)
	assert.Len(t, res.Units[2].Log, 1)
}

func TestRunUnitsAreIndependent(t *testing.T) {
	src := `class A:
    def __init__(self):
        pass

    def forward(self, x):
        return F.relu(x)

    class Inner:
        def __init__(self):
            pass

        def forward(self, x):
            return F.relu(F.relu(x))

class B:
    def __init__(self):
        pass

    def forward(self, x):
        return F.relu(x)
`
	mod := parse(t, src)
	res, err := Run(mod, DefaultOptions(), templates(t, map[string]string{"relu": "self.relu = nn.ReLU()"}))
	require.NoError(t, err)
	require.Len(t, res.Units, 3)
	assert.Equal(t, "A", res.Units[0].Class)
	assert.Equal(t, Log{{"relu", 1}}, res.Units[0].Log)
	assert.Equal(t, "A.Inner", res.Units[1].Class)
	assert.Equal(t, Log{{"relu", 1}, {"relu", 2}}, res.Units[1].Log)
	assert.Equal(t, "B", res.Units[2].Class)
	assert.Equal(t, Log{{"relu", 1}}, res.Units[2].Log)
}

func TestRunStopsAtFirstError(t *testing.T) {
	src := `class A:
    def __init__(self):
        pass

    def forward(self, x):
        return F.gelu(x)

class B:
    def __init__(self):
        pass

    def forward(self, x):
        return F.relu(x)
`
	mod := parse(t, src)
	res, err := Run(mod, DefaultOptions(), templates(t, map[string]string{"relu": "self.relu = nn.ReLU()"}))
	require.Error(t, err)
	require.Len(t, res.Units, 1)
	assert.Contains(t, printer.Print(mod), "return F.relu(x)")
}

func TestPlanDoesNotMutate(t *testing.T) {
	mod := parse(t, netSource)
	want := printer.Print(mod)
	res := Plan(mod, DefaultOptions())
	require.Len(t, res.Units, 1)
	assert.Len(t, res.Units[0].Log, 5)
	assert.Equal(t, want, printer.Print(mod))
}

func TestPassInChain(t *testing.T) {
	mod := parse(t, netSource)
	var got *Result
	chain := ast.Chain(Pass(DefaultOptions(), netTemplates(t), func(r *Result) { got = r }))
	out, err := chain.Transform(mod)
	require.NoError(t, err)
	assert.Same(t, mod, out)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.Rewritten())
	assert.Equal(t, netRewritten, printer.Print(out))
}

func TestNamespaceFreeCheckMessage(t *testing.T) {
	mod := parse(t, netSource)
	err := NamespaceFreeCheck(DefaultOptions()).Check(mod)
	require.Error(t, err)
	assert.Equal(t, "class Net: F.relu still called in forward", err.Error())
}
