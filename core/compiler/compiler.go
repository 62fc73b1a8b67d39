// Package compiler wires the pipeline stages into the host
// operations the CLI front-end exposes: compile, check, explain,
// compress, diff. It is the one package that drives every stage in
// order; a stage package imports only the earlier stages whose types it
// consumes (ir uses sema's types, lower and graph use ir).
package compiler

import (
	"fmt"

	"github.com/icl-lang/iclc/core/alias"
	"github.com/icl-lang/iclc/core/ast"
	"github.com/icl-lang/iclc/core/diag"
	"github.com/icl-lang/iclc/core/ir"
	"github.com/icl-lang/iclc/core/lexer"
	"github.com/icl-lang/iclc/core/lower"
	"github.com/icl-lang/iclc/core/macro"
	"github.com/icl-lang/iclc/core/pack"
	"github.com/icl-lang/iclc/core/parser"
	"github.com/icl-lang/iclc/core/registry"
	"github.com/icl-lang/iclc/core/sema"
	"github.com/icl-lang/iclc/internal/logging"
)

// AliasMode selects the `--alias-mode` flag's behavior.
type AliasMode string

const (
	AliasOff      AliasMode = ""
	AliasCore     AliasMode = "core"
	AliasExtended AliasMode = "extended"
)

// Options mirrors the CLI surface's flags as a single
// configuration record taken by Compile, Check, Explain and RunFrontend;
// Compress and Diff take no options.
type Options struct {
	Targets           []string
	EmitGraphPath     string
	EmitSourcemapPath string
	Optimize          bool
	Debug             bool
	Natural           bool
	AliasMode         AliasMode
	AliasTrace        bool
	Plugins           []string
	Packs             []string
}

// Frontend is the shared result of running alias→lex→parse→macro→sema
// once; lowering and emission then run independently per target against
// the same IR.
type Frontend struct {
	AliasTrace []alias.Rewrite
	Program    *ast.Program
	Types      *sema.Result
	Module     *ir.IRModule
	SourceMap  ir.SourceMap
}

// RunFrontend executes the shared, target-independent prefix of the
// pipeline.
func RunFrontend(file, source string, opts Options, macros *macro.Registry) (*Frontend, error) {
	text := source
	var trace []alias.Rewrite

	if opts.AliasMode != AliasOff {
		logging.StageEntered("alias", file)
		mode := alias.Core
		if opts.AliasMode == AliasExtended {
			mode = alias.Extended
		}
		result, err := alias.Normalize(file, source, mode, func(candidate string) error {
			_, lexErr := lexer.Lex(file, candidate)
			return lexErr
		})
		if err != nil {
			logging.StageFailed("alias", file, 1)
			return nil, err
		}
		text = result.Text
		trace = result.Trace
	}

	logging.StageEntered("lex", file)
	toks, err := lexer.Lex(file, text)
	if err != nil {
		logging.StageFailed("lex", file, diagCount(err))
		return nil, err
	}

	logging.StageEntered("parse", file)
	prog, err := parser.Parse(toks)
	if err != nil {
		logging.StageFailed("parse", file, diagCount(err))
		return nil, err
	}

	if macros == nil {
		macros = macro.DefaultRegistry()
	}
	logging.StageEntered("macro", file)
	if err := macro.Expand(macros, prog); err != nil {
		logging.StageFailed("macro", file, diagCount(err))
		return nil, err
	}

	logging.StageEntered("sema", file)
	types, err := sema.Analyze(prog)
	if err != nil {
		logging.StageFailed("sema", file, diagCount(err))
		return nil, err
	}

	logging.StageEntered("ir", file)
	mod, spans := ir.Build(prog, types)

	return &Frontend{AliasTrace: trace, Program: prog, Types: types, Module: mod, SourceMap: spans}, nil
}

func diagCount(err error) int {
	if d, ok := err.(*diag.Diagnostics); ok {
		return len(d.Items)
	}
	return 1
}

// TargetOutcome is one target's result from a multi-target Compile run:
// either a bundle or a diagnostics list, never both.
type TargetOutcome struct {
	Target      string
	Bundle      *pack.Bundle
	Diagnostics error
}

// Compile runs the shared front end once, then lowers and emits
// independently for every requested target. A lowering failure for one
// target never stops the others.
func Compile(file, source string, opts Options, reg *registry.Registry, macros *macro.Registry) ([]TargetOutcome, error) {
	fe, err := RunFrontend(file, source, opts, macros)
	if err != nil {
		return nil, err
	}
	return CompileFrontend(fe, file, opts, reg), nil
}

// CompileFrontend lowers and emits an already-built front end for every
// target in opts, so a host that needs the shared IR for artifacts
// (intent graph, source map) does not run the front end twice.
func CompileFrontend(fe *Frontend, file string, opts Options, reg *registry.Registry) []TargetOutcome {
	outcomes := make([]TargetOutcome, 0, len(opts.Targets))
	for _, target := range opts.Targets {
		p, ok := reg.Get(target)
		if !ok {
			outcomes = append(outcomes, TargetOutcome{Target: target, Diagnostics: fmt.Errorf("PACK003: unknown target %q", target)})
			continue
		}
		manifest := p.Manifest()
		logging.StageEntered("lower", file, "target", target)
		nextID := maxSourceMapID(fe.SourceMap) + 1
		lowered, err := lower.Lower(fe.Module, manifest.Capabilities(), fe.SourceMap, nextID)
		if err != nil {
			logging.PackError(manifest.PackID, "lower", err)
			outcomes = append(outcomes, TargetOutcome{Target: target, Diagnostics: diagWrap(err)})
			continue
		}
		if opts.Optimize {
			lowered.Statements = ir.Optimize(lowered.Statements)
		}
		for _, w := range lowered.Warnings.Items {
			logging.LoweringFallback(manifest.PackID, w.Code, w.Message)
		}
		ctx := pack.Context{Optimize: opts.Optimize, Debug: opts.Debug, Natural: opts.Natural}
		emitted, err := p.Emit(lowered, ctx)
		if err != nil {
			logging.PackError(manifest.PackID, "emit", err)
			outcomes = append(outcomes, TargetOutcome{Target: target, Diagnostics: err})
			continue
		}
		bundle, err := p.Scaffold(emitted, ctx)
		if err != nil {
			logging.PackError(manifest.PackID, "scaffold", err)
			outcomes = append(outcomes, TargetOutcome{Target: target, Diagnostics: err})
			continue
		}
		outcomes = append(outcomes, TargetOutcome{Target: target, Bundle: &bundle})
	}
	return outcomes
}

// Check runs the front end and reports OK or the aggregated diagnostics,
// without lowering or emitting for any target.
func Check(file, source string, opts Options, macros *macro.Registry) error {
	_, err := RunFrontend(file, source, opts, macros)
	return err
}

func maxSourceMapID(spans ir.SourceMap) int {
	max := 0
	for id := range spans {
		if id > max {
			max = id
		}
	}
	return max
}

// diagWrap lets lowering errors be distinguished from front-end errors by
// callers using errors.Is against diag.ErrLowering.
func diagWrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", diag.ErrLowering, err)
}
