package parser

import (
	"fmt"
	"os"

	"github.com/rubiojr/layerize/ast"
	"github.com/rubiojr/layerize/scanner"
	mscanner "modernc.org/scanner"
)

// ParseFile reads a Python source file and parses it into a Module.
func ParseFile(filename string) (*ast.Module, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return ParseSource(string(src), filename)
}

// ParseSource parses Python source into a Module.
// The name parameter is used for error messages.
func ParseSource(source, name string) (*ast.Module, error) {
	toks, err := scanner.Tokenize(name, source)
	if err != nil {
		return nil, firstParseError(err)
	}
	p := newParser(toks)
	var body []ast.Statement
	if err := p.run(func() { body = p.parseModule() }); err != nil {
		return nil, firstParseError(err)
	}
	return &ast.Module{Body: body, SourceFile: name}, nil
}

// ParseStatement parses source holding exactly one statement, such as
// a layer template.
func ParseStatement(source string) (ast.Statement, error) {
	mod, err := ParseSource(source, "<statement>")
	if err != nil {
		return nil, err
	}
	if len(mod.Body) != 1 {
		return nil, fmt.Errorf("expected exactly one statement, got %d", len(mod.Body))
	}
	return mod.Body[0], nil
}

// firstParseError extracts the first error from an error list and formats
// it as file:line:col: message.
func firstParseError(err error) error {
	if el, ok := err.(mscanner.ErrList); ok && len(el) > 0 {
		pos := el[0].Pos
		return fmt.Errorf("%s:%d:%d: %w", pos.Filename, pos.Line, pos.Column, el[0].Err)
	}
	return err
}
