package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rubiojr/layerize/ast"
	"github.com/rubiojr/layerize/config"
	"github.com/rubiojr/layerize/parser"
	"github.com/rubiojr/layerize/printer"
	"github.com/rubiojr/layerize/rewrite"
	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

var log = commonlog.GetLogger("layerize.cmd")

func init() {
	// -v is --verbose; the version flag keeps only its long name.
	cli.VersionFlag = &cli.BoolFlag{
		Name:        "version",
		Usage:       "print the version",
		HideDefault: true,
		Local:       true,
	}
}

// Execute runs the layerize CLI with the given version string.
func Execute(version string) {
	if err := newCommand(version).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand(version string) *cli.Command {
	return &cli.Command{
		Name:                      "layerize",
		Usage:                     "Rewrite functional calls in model classes into constructed layers",
		Version:                   version,
		UseShortOptionHandling:    true,
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file (default: layerize.toml or layerize.yaml found upward from the source file)",
			},
			&cli.StringFlag{
				Name:    "namespace",
				Aliases: []string{"n"},
				Usage:   "Qualifier of the calls to rewrite",
			},
			&cli.StringSliceFlag{
				Name:    "template",
				Aliases: []string{"t"},
				Usage:   "Template override as op=statement (repeatable)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Increase logging verbosity (repeatable)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd.Count("verbose"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:      "rewrite",
				Usage:     "Rewrite a Python source file and print the result",
				ArgsUsage: "<file.py>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "write",
						Aliases: []string{"w"},
						Usage:   "Write the result back to the source file",
					},
					&cli.BoolFlag{
						Name:    "show-before",
						Aliases: []string{"b"},
						Usage:   "Print the original source before the transformed one",
					},
				},
				Action: rewriteAction,
			},
			{
				Name:      "plan",
				Usage:     "Show the calls that would be rewritten without changing anything",
				ArgsUsage: "<file.py>",
				Action:    planAction,
			},
			{
				Name:   "templates",
				Usage:  "List the effective layer templates",
				Action: templatesAction,
			},
		},
	}
}

// setupLogging installs an unbuffered stderr backend so log lines are not
// lost when the process exits.
func setupLogging(verbosity int) {
	backend := simple.NewBackend()
	backend.Buffered = false
	commonlog.SetBackend(backend)
	commonlog.Configure(verbosity, nil)
}

// loadConfig resolves the configuration for a source file (or the working
// directory when file is empty) and applies command line overrides.
func loadConfig(cmd *cli.Command, file string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := cmd.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		dir := "."
		if file != "" {
			dir = filepath.Dir(file)
		}
		cfg, err = config.FindAndLoad(dir)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		log.Infof("using config %s", cfg.Path)
	} else {
		log.Infof("using built-in defaults")
	}

	if ns := cmd.String("namespace"); ns != "" {
		cfg.Namespace = ns
	}
	for _, o := range cmd.StringSlice("template") {
		op, src, err := config.ParseOverride(o)
		if err != nil {
			return nil, err
		}
		cfg.SetTemplate(op, src)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readSource(cmd *cli.Command, usage string) (string, *ast.Module, error) {
	if cmd.NArg() < 1 {
		return "", nil, fmt.Errorf("usage: %s", usage)
	}
	path := cmd.Args().First()
	src, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", path, err)
	}
	mod, err := parser.ParseSource(string(src), path)
	if err != nil {
		return "", nil, err
	}
	return string(src), mod, nil
}

func rewriteAction(ctx context.Context, cmd *cli.Command) error {
	src, mod, err := readSource(cmd, "layerize rewrite [-w] [-b] <file.py>")
	if err != nil {
		return err
	}
	path := cmd.Args().First()
	cfg, err := loadConfig(cmd, path)
	if err != nil {
		return err
	}
	tmpl, err := cfg.Compile()
	if err != nil {
		return err
	}

	opts := cfg.Options()
	pipeline := ast.Chain(rewrite.Pass(opts, tmpl, logResult))
	mod, err = pipeline.Transform(mod)
	if err != nil {
		return err
	}
	checks := ast.CheckChain{rewrite.NamespaceFreeCheck(opts)}
	if err := checks.Run(mod); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	out := printer.Print(mod)

	if cmd.Bool("write") {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Noticef("rewrote %s", path)
		return nil
	}

	w := cmd.Root().Writer
	if cmd.Bool("show-before") {
		fmt.Fprintln(w, strings.TrimRight(src, "\n"))
		banner(w, "Transformed:")
	}
	fmt.Fprint(w, out)
	return nil
}

func logResult(res *rewrite.Result) {
	if res == nil {
		return
	}
	for _, u := range res.Units {
		if u.Skipped {
			log.Infof("%s: skipped, %s", u.Class, u.Reason)
			continue
		}
		log.Infof("%s: %d calls rewritten", u.Class, len(u.Log))
		for _, e := range u.Log {
			log.Debugf("%s: %s -> %s", u.Class, e.Op, e.Name())
		}
	}
}

func planAction(ctx context.Context, cmd *cli.Command) error {
	_, mod, err := readSource(cmd, "layerize plan <file.py>")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, cmd.Args().First())
	if err != nil {
		return err
	}

	opts := cfg.Options()
	res := rewrite.Plan(mod, opts)
	w := cmd.Root().Writer
	for _, u := range res.Units {
		if u.Skipped {
			log.Infof("%s: skipped, %s", u.Class, u.Reason)
			continue
		}
		for _, e := range u.Log {
			fmt.Fprintf(w, "%s.%s: %s.%s -> %s.%s\n", u.Class, opts.Compute, opts.Namespace, e.Op, opts.Self, e.Name())
			if _, ok := cfg.Templates[e.Op]; !ok {
				log.Warningf("no template for operation %q", e.Op)
			}
		}
	}
	if res.Rewritten() == 0 {
		log.Noticef("no %s.* calls to rewrite", opts.Namespace)
	}
	return nil
}

func templatesAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}
	tmpl, err := cfg.Compile()
	if err != nil {
		return err
	}

	ops := tmpl.Ops()
	width := 0
	for _, op := range ops {
		width = max(width, len(op))
	}
	w := cmd.Root().Writer
	for _, op := range ops {
		fmt.Fprintf(w, "%-*s  %s", width, op, printer.Stmt(tmpl[op]))
	}
	return nil
}

// banner prints the separator block between original and transformed
// source, in colour when w is a terminal and NO_COLOR is unset.
func banner(w io.Writer, title string) {
	rule := strings.Repeat("-", len(title))
	if useColor(w) {
		title = "\033[1;36m" + title + "\033[0m"
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, rule)
}

func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
