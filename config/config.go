// Package config handles layerize.toml and layerize.yaml project
// configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rubiojr/layerize/ast"
	"github.com/rubiojr/layerize/parser"
	"github.com/rubiojr/layerize/rewrite"
	"github.com/rubiojr/layerize/scanner"
	"gopkg.in/yaml.v3"
)

// FileNames lists the configuration file names searched for, in order.
var FileNames = []string{"layerize.toml", "layerize.yaml", "layerize.yml"}

// Config is a layerize project configuration.
type Config struct {
	Namespace   string            `toml:"namespace" yaml:"namespace"`
	Self        string            `toml:"self" yaml:"self"`
	Initializer string            `toml:"initializer" yaml:"initializer"`
	Compute     string            `toml:"compute" yaml:"compute"`
	Templates   map[string]string `toml:"templates" yaml:"templates"`

	// Path is the file the configuration was loaded from, empty for defaults.
	Path string `toml:"-" yaml:"-"`
}

// defaultTemplates maps torch.nn.functional operations to the torch.nn
// modules that replace them.
var defaultTemplates = map[string]string{
	"relu":        "self.relu = nn.ReLU()",
	"leaky_relu":  "self.leaky_relu = nn.LeakyReLU()",
	"elu":         "self.elu = nn.ELU()",
	"gelu":        "self.gelu = nn.GELU()",
	"sigmoid":     "self.sigmoid = nn.Sigmoid()",
	"tanh":        "self.tanh = nn.Tanh()",
	"dropout":     "self.dropout = nn.Dropout()",
	"max_pool2d":  "self.max_pool2d = lambda x, y, z: nn.MaxPool2d((y,z))(x)",
	"avg_pool2d":  "self.avg_pool2d = lambda x, y, z: nn.AvgPool2d((y,z))(x)",
	"softmax":     "self.softmax = lambda x, dim=None: nn.Softmax(dim=dim)(x)",
	"log_softmax": "self.log_softmax = lambda x, dim=None: nn.LogSoftmax(dim=dim)(x)",
}

// Default returns the built-in configuration: PyTorch naming conventions
// and templates for the common functional operations.
func Default() *Config {
	opts := rewrite.DefaultOptions()
	return &Config{
		Namespace:   opts.Namespace,
		Self:        opts.Self,
		Initializer: opts.Initializer,
		Compute:     opts.Compute,
		Templates:   maps.Clone(defaultTemplates),
	}
}

// Load reads a configuration file. The format follows the extension.
// Fields the file leaves out keep their default values; templates from the
// file are added to the defaults, replacing entries of the same name.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var file Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = decodeTOML(data, &file)
	case ".yaml", ".yml":
		err = decodeYAML(data, &file)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c := Default()
	c.merge(&file)
	c.Path = path
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func decodeTOML(data []byte, c *Config) error {
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func decodeYAML(data []byte, c *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// FindAndLoad walks up from startDir looking for one of FileNames and
// loads the first match. When no file exists up to the filesystem root it
// returns Default().
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return Load(path)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) merge(o *Config) {
	if o.Namespace != "" {
		c.Namespace = o.Namespace
	}
	if o.Self != "" {
		c.Self = o.Self
	}
	if o.Initializer != "" {
		c.Initializer = o.Initializer
	}
	if o.Compute != "" {
		c.Compute = o.Compute
	}
	if c.Templates == nil {
		c.Templates = make(map[string]string, len(o.Templates))
	}
	maps.Copy(c.Templates, o.Templates)
}

// Validate checks that every configured name is a Python identifier.
func (c *Config) Validate() error {
	for _, f := range []struct{ key, value string }{
		{"namespace", c.Namespace},
		{"self", c.Self},
		{"initializer", c.Initializer},
		{"compute", c.Compute},
	} {
		if !scanner.IsIdentifier(f.value) {
			return fmt.Errorf("invalid %s %q: not an identifier", f.key, f.value)
		}
	}
	for _, op := range slices.Sorted(maps.Keys(c.Templates)) {
		if !scanner.IsIdentifier(op) {
			return fmt.Errorf("invalid template name %q: not an identifier", op)
		}
	}
	return nil
}

// SetTemplate adds or replaces the template for op.
func (c *Config) SetTemplate(op, src string) {
	if c.Templates == nil {
		c.Templates = make(map[string]string)
	}
	c.Templates[op] = src
}

// ParseOverride splits an op=statement template override, as given on the
// command line.
func ParseOverride(s string) (op, src string, err error) {
	op, src, ok := strings.Cut(s, "=")
	op = strings.TrimSpace(op)
	src = strings.TrimSpace(src)
	if !ok || op == "" || src == "" {
		return "", "", fmt.Errorf("invalid template override %q: expected op=statement", s)
	}
	if !scanner.IsIdentifier(op) {
		return "", "", fmt.Errorf("invalid template override %q: %q is not an identifier", s, op)
	}
	return op, src, nil
}

// Options returns the rewrite options of the configuration.
func (c *Config) Options() rewrite.Options {
	return rewrite.Options{
		Namespace:   c.Namespace,
		Self:        c.Self,
		Initializer: c.Initializer,
		Compute:     c.Compute,
	}
}

// Compile parses every template and validates the result, so malformed
// templates are reported before any source is rewritten.
func (c *Config) Compile() (rewrite.Templates, error) {
	parsed := make(map[string]ast.Statement, len(c.Templates))
	for _, op := range slices.Sorted(maps.Keys(c.Templates)) {
		st, err := parser.ParseStatement(strings.TrimSpace(c.Templates[op]))
		if err != nil {
			return nil, &rewrite.MalformedTemplateError{Op: op, Reason: err.Error()}
		}
		parsed[op] = st
	}
	return rewrite.NewTemplates(parsed)
}
