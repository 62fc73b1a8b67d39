// Command icl is the CLI front-end for the Intent Compression Language
// compiler. It binds the core/compiler operations (compile, check,
// explain, compress, diff) and the pack registry (list, validate,
// contract test) to a kong-based command surface.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/icl-lang/iclc/core/compiler"
	"github.com/icl-lang/iclc/core/diag"
	"github.com/icl-lang/iclc/core/graph"
	"github.com/icl-lang/iclc/core/lower"
	"github.com/icl-lang/iclc/core/macro"
	"github.com/icl-lang/iclc/core/pack"
	"github.com/icl-lang/iclc/core/registry"
	"github.com/icl-lang/iclc/internal/bundle"
	"github.com/icl-lang/iclc/internal/logging"
	"github.com/icl-lang/iclc/internal/service"
	"github.com/icl-lang/iclc/internal/store"
	"github.com/icl-lang/iclc/packs/javascript"
	"github.com/icl-lang/iclc/packs/python"
	"github.com/icl-lang/iclc/packs/rust"
	"github.com/icl-lang/iclc/packs/web"
)

const version = "0.1.0"

// Exit codes.
const (
	exitOK          = 0
	exitCompileFail = 1
	exitUsage       = 2
	exitInternal    = 3
)

// CLI defines the command-line interface for icl.
var CLI struct {
	Debug bool `help:"Enable debug logging" default:"false"`

	Compile  CompileCmd  `cmd:"" help:"Compile source to one or more targets"`
	Check    CheckCmd    `cmd:"" help:"Run the front end and report diagnostics"`
	Explain  ExplainCmd  `cmd:"" help:"Print the ast/ir/graph/source-map JSON payload"`
	Compress CompressCmd `cmd:"" help:"Print the canonical compact serialization of a source file"`
	Diff     DiffCmd     `cmd:"" help:"Structurally diff two serialized intent graphs"`
	Pack     PackGroup   `cmd:"" help:"Pack registry operations"`
	Contract ContractCmd `cmd:"" name:"contract" help:"Run the contract-test corpus against one or more packs"`
	Serve    ServeCmd    `cmd:"" help:"Serve compile/check/explain over HTTP with an explain-watch WebSocket"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// ServeCmd hosts the compiler behind the HTTP service adapter, or a
// line-delimited JSON protocol on stdin/stdout with --stdio.
type ServeCmd struct {
	Port     int      `help:"Port to listen on" default:"8132"`
	Stdio    bool     `help:"Serve one JSON request per stdin line instead of HTTP"`
	PackSpec []string `help:"Pack specifier module[:symbol] (repeatable)" name:"pack"`
}

func (c *ServeCmd) Run() error {
	reg, err := resolvePacks(builtinRegistry(), c.PackSpec)
	if err != nil {
		return usageError(err)
	}
	if c.Stdio {
		if err := service.RunStdio(os.Stdin, os.Stdout, reg); err != nil {
			return internalError(err)
		}
		return nil
	}
	if err := service.Start(service.Config{Port: c.Port, Registry: reg}); err != nil {
		return internalError(err)
	}
	return nil
}

// PackGroup contains pack registry operations.
type PackGroup struct {
	List     PackListCmd     `cmd:"" help:"List registered pack manifests"`
	Validate PackValidateCmd `cmd:"" help:"Run the contract corpus against one pack and report pass/fail"`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("icl", version)
	return nil
}

// sharedFlags mirrors the CLI surface's common flags, embedded
// by every command that runs the front end.
type sharedFlags struct {
	Target     string   `help:"Single target id" name:"target"`
	Targets    []string `help:"One or more target ids (repeatable, comma-separated)" name:"targets"`
	EmitGraph  string   `help:"Write the intent graph JSON to this path" name:"emit-graph" type:"path"`
	EmitSource string   `help:"Write the source map JSON to this path" name:"emit-sourcemap" type:"path"`
	Optimize   bool     `help:"Run the non-normative constant-fold/dead-assignment pass"`
	Debug      bool     `help:"Include debug-oriented comments in emitted output where a pack supports it"`
	Natural    bool     `help:"Accept natural-word aliases in source (implies --alias-mode core unless one is set)"`
	AliasMode  string   `help:"Alias-normalization mode" enum:",core,extended" default:""`
	AliasTrace bool     `help:"Include the alias substitution trace in explain output" name:"alias-trace"`
	Plugin     []string `help:"Syntax plug-in specifier module[:symbol] (repeatable)" name:"plugin"`
	PackSpec   []string `help:"Pack specifier module[:symbol] (repeatable)" name:"pack"`
}

func (f sharedFlags) targets() []string {
	var out []string
	if f.Target != "" {
		out = append(out, f.Target)
	}
	for _, t := range f.Targets {
		out = append(out, strings.Split(t, ",")...)
	}
	return out
}

func (f sharedFlags) toOptions() compiler.Options {
	mode := compiler.AliasOff
	switch f.AliasMode {
	case "core":
		mode = compiler.AliasCore
	case "extended":
		mode = compiler.AliasExtended
	}
	if mode == compiler.AliasOff && f.Natural {
		mode = compiler.AliasCore
	}
	return compiler.Options{
		Targets:           f.targets(),
		EmitGraphPath:     f.EmitGraph,
		EmitSourcemapPath: f.EmitSource,
		Optimize:          f.Optimize,
		Debug:             f.Debug,
		Natural:           f.Natural,
		AliasMode:         mode,
		AliasTrace:        f.AliasTrace,
		Plugins:           f.Plugin,
		Packs:             f.PackSpec,
	}
}

// readSource loads a source argument, treating it as a file path when the
// path exists and as literal source text otherwise.
func readSource(arg string) (file, source string, err error) {
	if arg == "-" {
		data, err := readAll(os.Stdin)
		return "<stdin>", data, err
	}
	if data, err := os.ReadFile(arg); err == nil {
		return arg, string(data), nil
	}
	return "<literal>", arg, nil
}

func readAll(f *os.File) (string, error) {
	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return b.String(), nil
			}
			return b.String(), err
		}
	}
}

// builtinRegistry registers the four in-tree packs under their
// manifest's pack_id. The `--plugin`/`--pack` specifiers select among these by
// name; ICL has no runtime dynamic-module loader, so a specifier whose
// module does not name one of the built-ins is rejected rather than
// attempting to load an external shared object.
func builtinRegistry() *registry.Registry {
	reg := registry.New()
	for _, p := range []pack.Pack{python.Pack{}, javascript.Pack{}, rust.Pack{}, web.Pack{}} {
		if err := reg.Register(p); err != nil {
			panic(err)
		}
	}
	return reg
}

// resolveMacros applies --plugin specifiers against the built-in macro
// modules, falling back to the full default registry when none were
// given.
func resolveMacros(specs []string) (*macro.Registry, error) {
	if len(specs) == 0 {
		return macro.DefaultRegistry(), nil
	}
	reg := macro.NewRegistry()
	for _, raw := range specs {
		sp, err := registry.ParseSpecifier(raw)
		if err != nil {
			return nil, fmt.Errorf("CLI001: bad plugin specifier %q: %w", raw, err)
		}
		install, ok := macro.Modules[sp.Module]
		if !ok {
			return nil, fmt.Errorf("CLI002: unknown syntax plug-in %q", sp.Module)
		}
		install(reg)
	}
	return reg, nil
}

// resolvePacks applies --pack specifiers against the built-in registry,
// falling back to the full built-in set when none were given.
func resolvePacks(reg *registry.Registry, specs []string) (*registry.Registry, error) {
	if len(specs) == 0 {
		return reg, nil
	}
	out := registry.New()
	for _, raw := range specs {
		sp, err := registry.ParseSpecifier(raw)
		if err != nil {
			return nil, fmt.Errorf("CLI001: bad pack specifier %q: %w", raw, err)
		}
		p, ok := reg.Get(sp.Module)
		if !ok {
			return nil, fmt.Errorf("CLI002: unknown pack %q", sp.Module)
		}
		if err := out.Register(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CompileCmd implements `compile`.
type CompileCmd struct {
	sharedFlags
	Source  string `arg:"" help:"Path to source file, or literal ICL source, or - for stdin"`
	Out     string `help:"Output directory for scaffolded bundles; default is the current directory" type:"path"`
	Archive bool   `help:"Write each target's bundle as a single tar.xz archive instead of a directory tree"`
}

func (c *CompileCmd) Run() error {
	file, source, err := readSource(c.Source)
	if err != nil {
		return usageError(err)
	}
	reg, err := resolvePacks(builtinRegistry(), c.PackSpec)
	if err != nil {
		return usageError(err)
	}
	macros, err := resolveMacros(c.Plugin)
	if err != nil {
		return usageError(err)
	}
	opts := c.toOptions()
	if len(opts.Targets) == 0 {
		return usageError(fmt.Errorf("CLI003: compile requires --target or --targets"))
	}

	fe, err := compiler.RunFrontend(file, source, opts, macros)
	if err != nil {
		return compileError(err)
	}
	if err := writeArtifacts(fe, c.EmitGraph, c.EmitSource); err != nil {
		return internalError(err)
	}
	outcomes := compiler.CompileFrontend(fe, file, opts, reg)

	failed := false
	for _, o := range outcomes {
		if o.Diagnostics != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", o.Target, o.Diagnostics)
			failed = true
			continue
		}
		if c.Out == "" && !c.Archive {
			fmt.Print(string(o.Bundle.Files[o.Bundle.PrimaryPath]))
			continue
		}
		out := c.Out
		if out == "" {
			out = "."
		}
		if c.Archive {
			archivePath := out + "/" + o.Target + ".tar.xz"
			if err := bundle.Write(*o.Bundle, archivePath); err != nil {
				return internalError(err)
			}
			fmt.Printf("%s: wrote %s (%s)\n", o.Target, archivePath, bundle.Summary(*o.Bundle))
			continue
		}
		dir := out + "/" + o.Target
		if err := writeBundle(dir, *o.Bundle); err != nil {
			return internalError(err)
		}
		fmt.Printf("%s: wrote %s/%s (%s)\n", o.Target, dir, o.Bundle.PrimaryPath, bundle.Summary(*o.Bundle))
	}
	if failed {
		return compileError(fmt.Errorf("one or more targets failed"))
	}
	return nil
}

// writeArtifacts writes the intent-graph and source-map JSON files when
// their flags were given.
func writeArtifacts(fe *compiler.Frontend, graphPath, sourcemapPath string) error {
	if graphPath != "" {
		data, err := compiler.EncodeGraph(graph.Build(fe.Module))
		if err != nil {
			return err
		}
		if err := os.WriteFile(graphPath, data, 0o644); err != nil {
			return err
		}
	}
	if sourcemapPath != "" {
		data, err := compiler.EncodeSourceMap(fe.SourceMap)
		if err != nil {
			return err
		}
		if err := os.WriteFile(sourcemapPath, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func writeBundle(dir string, b pack.Bundle) error {
	for path, data := range b.Files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// CheckCmd implements `check`.
type CheckCmd struct {
	sharedFlags
	Source string `arg:"" help:"Path to source file, or literal ICL source, or - for stdin"`
}

func (c *CheckCmd) Run() error {
	file, source, err := readSource(c.Source)
	if err != nil {
		return usageError(err)
	}
	macros, err := resolveMacros(c.Plugin)
	if err != nil {
		return usageError(err)
	}
	if err := compiler.Check(file, source, c.toOptions(), macros); err != nil {
		return compileError(err)
	}
	fmt.Println("OK")
	return nil
}

// ExplainCmd implements `explain`.
type ExplainCmd struct {
	sharedFlags
	Source string `arg:"" help:"Path to source file, or literal ICL source, or - for stdin"`
}

func (c *ExplainCmd) Run() error {
	file, source, err := readSource(c.Source)
	if err != nil {
		return usageError(err)
	}

	var caps *lower.Capabilities
	var target string
	if t := c.targets(); len(t) > 0 {
		target = t[0]
		reg, err := resolvePacks(builtinRegistry(), c.PackSpec)
		if err != nil {
			return usageError(err)
		}
		p, ok := reg.Get(target)
		if !ok {
			return usageError(fmt.Errorf("CLI002: unknown target %q", target))
		}
		c2 := p.Manifest().Capabilities()
		caps = &c2
	}

	macros, err := resolveMacros(c.Plugin)
	if err != nil {
		return usageError(err)
	}
	result, err := compiler.Explain(file, source, c.toOptions(), macros, target, caps)
	if err != nil {
		return compileError(err)
	}
	out, err := compiler.EncodeExplain(result)
	if err != nil {
		return internalError(err)
	}
	fmt.Println(string(out))

	if c.EmitGraph != "" {
		g, err := compiler.EncodeGraph(result.Graph)
		if err != nil {
			return internalError(err)
		}
		if err := os.WriteFile(c.EmitGraph, g, 0o644); err != nil {
			return internalError(err)
		}
	}
	if c.EmitSource != "" {
		sm, err := compiler.EncodeSourceMap(result.SourceMap)
		if err != nil {
			return internalError(err)
		}
		if err := os.WriteFile(c.EmitSource, sm, 0o644); err != nil {
			return internalError(err)
		}
	}
	return nil
}

// CompressCmd implements `compress`.
type CompressCmd struct {
	Source string `arg:"" help:"Path to source file, or literal ICL source, or - for stdin"`
}

func (c *CompressCmd) Run() error {
	file, source, err := readSource(c.Source)
	if err != nil {
		return usageError(err)
	}
	out, err := compiler.Compress(file, source)
	if err != nil {
		return compileError(err)
	}
	fmt.Println(out)
	return nil
}

// DiffCmd implements `diff`.
type DiffCmd struct {
	Before string `arg:"" help:"Path to the first serialized graph JSON"`
	After  string `arg:"" help:"Path to the second serialized graph JSON"`
}

func (c *DiffCmd) Run() error {
	before, err := loadGraph(c.Before)
	if err != nil {
		return usageError(err)
	}
	after, err := loadGraph(c.After)
	if err != nil {
		return usageError(err)
	}
	result := compiler.Diff(before, after)
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return internalError(err)
	}
	fmt.Println(string(out))
	return nil
}

func loadGraph(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return compiler.DecodeGraph(data)
}

// PackListCmd implements `pack list`.
type PackListCmd struct {
	Stability string `help:"Only list packs with this stability" enum:",experimental,beta,stable" default:""`
}

func (c *PackListCmd) Run() error {
	reg := builtinRegistry()
	var filter []pack.Stability
	if c.Stability != "" {
		filter = append(filter, pack.Stability(c.Stability))
	}
	manifests := reg.List(filter...)
	for _, m := range manifests {
		fmt.Printf("%-12s v%-8s target=%-10s stability=%s\n", m.PackID, m.Version, m.Target, m.Stability)
	}
	return nil
}

// PackValidateCmd implements `pack validate`.
type PackValidateCmd struct {
	Target  string `arg:"" optional:"" help:"Pack id to validate; validates every registered pack when omitted"`
	History string `help:"Record this run's per-feature results to a SQLite history database at this path, and report regressions against the prior run" type:"path"`
}

func (c *PackValidateCmd) Run() error {
	reg := builtinRegistry()
	var targets []string
	if c.Target != "" {
		targets = []string{c.Target}
	}
	reports, err := reg.ContractTest(targets)
	if err != nil {
		return usageError(err)
	}
	if c.History != "" {
		if err := recordHistory(c.History, reports); err != nil {
			return internalError(err)
		}
	}
	return printReports(reports)
}

// ContractCmd implements `contract test`.
type ContractCmd struct {
	Test ContractTestCmd `cmd:"" help:"Run the required-core contract corpus"`
}

// ContractTestCmd implements `contract test`.
type ContractTestCmd struct {
	Targets []string `help:"Target ids to test (repeatable, comma-separated)"`
	All     bool     `help:"Test every registered pack"`
	History string   `help:"Record this run's per-feature results to a SQLite history database at this path, and report regressions against the prior run" type:"path"`
}

func (c *ContractTestCmd) Run() error {
	reg := builtinRegistry()
	var targets []string
	if !c.All {
		for _, t := range c.Targets {
			targets = append(targets, strings.Split(t, ",")...)
		}
	}
	reports, err := reg.ContractTest(targets)
	if err != nil {
		return usageError(err)
	}
	if c.History != "" {
		if err := recordHistory(c.History, reports); err != nil {
			return internalError(err)
		}
	}
	return printReports(reports)
}

// recordHistory persists each report to the SQLite contract-test history
// store and prints any case that regressed from passing to failing since
// the previous recorded run.
func recordHistory(path string, reports []registry.ContractReport) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, r := range reports {
		regressed, err := s.Regressions(r)
		if err != nil {
			return err
		}
		for _, name := range regressed {
			fmt.Printf("REGRESSION %s: %s now fails, previously passed\n", r.PackID, name)
		}
		if err := s.RecordReport(r, time.Now()); err != nil {
			return err
		}
	}
	return nil
}

func printReports(reports []registry.ContractReport) error {
	failed := false
	for _, r := range reports {
		gate := "PASS"
		if !r.StableGate {
			gate = "FAIL"
			failed = true
		}
		fmt.Printf("%-12s gate=%s cases=%d failed=%d\n", r.PackID, gate, len(r.Results), len(r.FailedCases))
		for _, f := range r.FailedCases {
			fmt.Printf("  - %s\n", f)
		}
	}
	if failed {
		return compileError(fmt.Errorf("contract gate failed for one or more packs"))
	}
	return nil
}

// exitCodeError carries the exit code a failed command should return:
// compiler errors map to 1, usage errors to 2, internal errors to 3.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func usageError(err error) error   { return &exitCodeError{code: exitUsage, err: err} }
func compileError(err error) error { return &exitCodeError{code: exitCompileFail, err: err} }
func internalError(err error) error {
	return &exitCodeError{code: exitInternal, err: err}
}

func main() {
	logging.InitLogger(logging.LevelInfo, logging.FormatText)
	ctx := kong.Parse(&CLI,
		kong.Name("icl"),
		kong.Description("Intent Compression Language compiler"),
		kong.UsageOnError(),
	)
	if CLI.Debug {
		logging.InitLogger(logging.LevelDebug, logging.FormatText)
	}

	err := ctx.Run()
	if err == nil {
		os.Exit(exitOK)
	}

	var ec *exitCodeError
	if errors.As(err, &ec) {
		fmt.Fprintln(os.Stderr, "error:", ec.err)
		os.Exit(ec.code)
	}

	var d *diag.Diagnostics
	if errors.As(err, &d) {
		fmt.Fprintln(os.Stderr, d.Error())
		os.Exit(exitCompileFail)
	}

	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(exitUsage)
}
