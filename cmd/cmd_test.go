package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const netSource = `class Net(nn.Module):
    def __init__(self):
        super().__init__()

    def forward(self, x):
        return F.relu(x)
`

const netRewritten = `class Net(nn.Module):
    def __init__(self):
        super().__init__()
        self.relu1 = nn.ReLU()

    def forward(self, x):
        return self.relu1(x)
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := newCommand("test")
	c.Writer = &out
	c.ErrWriter = io.Discard
	err := c.Run(context.Background(), append([]string{"layerize"}, args...))
	return out.String(), err
}

// project writes a source file next to a layerize.toml so the config
// search stops inside the temporary directory.
func project(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layerize.toml"), []byte("namespace = \"F\"\n"), 0o644))
	path := filepath.Join(dir, "net.py")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRewritePrintsResult(t *testing.T) {
	out, err := run(t, "rewrite", project(t, netSource))
	require.NoError(t, err)
	assert.Equal(t, netRewritten, out)
}

func TestRewriteWrite(t *testing.T) {
	path := project(t, netSource)
	out, err := run(t, "rewrite", "-w", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, netRewritten, string(data))
}

func TestRewriteShowBefore(t *testing.T) {
	out, err := run(t, "rewrite", "-b", project(t, netSource))
	require.NoError(t, err)
	want := netSource + "------------\nTransformed:\n------------\n" + netRewritten
	assert.Equal(t, want, out)
}

func TestRewriteOverrides(t *testing.T) {
	src := `class M:
    def __init__(self):
        pass

    def forward(self, x):
        return G.foo(x)
`
	out, err := run(t, "-n", "G", "-t", "foo=self.foo = nn.Foo(a, b)", "rewrite", project(t, src))
	require.NoError(t, err)
	assert.Contains(t, out, "        self.foo1 = nn.Foo(a, b)\n")
	assert.Contains(t, out, "        return self.foo1(x)\n")
}

func TestRewriteMissingTemplate(t *testing.T) {
	src := `class M:
    def __init__(self):
        pass

    def forward(self, x):
        return F.foo(x)
`
	path := project(t, src)
	_, err := run(t, "rewrite", "-w", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `class M: no template for operation "foo"`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src, string(data), "source must be left untouched on failure")
}

func TestRewriteParseError(t *testing.T) {
	_, err := run(t, "rewrite", project(t, "class A:\nx = 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "net.py:2:")
}

func TestRewriteUsage(t *testing.T) {
	_, err := run(t, "rewrite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: layerize rewrite")
}

func TestPlan(t *testing.T) {
	src := `class Net(nn.Module):
    def __init__(self):
        self.relu1 = nn.ReLU()

    def forward(self, x):
        return F.relu(F.dropout(x))

class Helper:
    pass
`
	path := project(t, src)
	out, err := run(t, "plan", path)
	require.NoError(t, err)
	assert.Equal(t, "Net.forward: F.dropout -> self.dropout1\nNet.forward: F.relu -> self.relu2\n", out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src, string(data))
}

func TestVerboseRunsSubcommand(t *testing.T) {
	path := project(t, netSource)
	for _, args := range [][]string{
		{"-v", "plan", path},
		{"--verbose", "plan", path},
		{"--verbose", "--verbose", "plan", path},
	} {
		out, err := run(t, args...)
		require.NoError(t, err, args)
		assert.Equal(t, "Net.forward: F.relu -> self.relu1\n", out, args)
	}
}

func TestVerboseRewriteWrites(t *testing.T) {
	path := project(t, netSource)
	_, err := run(t, "-v", "rewrite", "-w", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, netRewritten, string(data))
}

func TestVersionFlag(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "layerize version test")
}

func TestTemplates(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("templates:\n  swish: self.swish = nn.SiLU()\n"), 0o644))

	out, err := run(t, "-c", cfg, "templates")
	require.NoError(t, err)
	assert.Contains(t, out, "swish        self.swish = nn.SiLU()\n")
	assert.Contains(t, out, "relu         self.relu = nn.ReLU()\n")
}

func TestConfigErrors(t *testing.T) {
	_, err := run(t, "-c", filepath.Join(t.TempDir(), "missing.toml"), "templates")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot read")

	_, err = run(t, "-t", "relu", "templates")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid template override")
}

func TestRewriteExample(t *testing.T) {
	out, err := run(t, "rewrite", filepath.Join("..", "examples", "mnist", "net.py"))
	require.NoError(t, err)
	for _, line := range []string{
		"        self.relu1 = nn.ReLU()\n",
		"        self.max_pool2d1 = lambda x, y, z: nn.MaxPool2d((y, z))(x)\n",
		"        self.relu3 = nn.ReLU()\n",
		"        self.log_softmax1 = lambda x, dim=None: nn.LogSoftmax(dim=dim)(x)\n",
		"        x = self.max_pool2d2(x, 2, 2)\n",
		"        return self.log_softmax1(x, dim=1)\n",
	} {
		assert.Contains(t, out, line)
	}
	assert.NotContains(t, out, "F.")
}
