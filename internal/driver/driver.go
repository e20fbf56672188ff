// Package driver implements the compilation session the CLI in cmd/faxc
// drives, grounded on faxc-drv's Config/Session/EmitType (the Rust
// original's driver crate — see faxc-drv/src/main.rs's re-export list and
// faxc-drv/tests/integration_test.rs's `Config{emit: EmitType::Lir}` /
// `Session::new(config).compile()` usage).
//
// Lexing, parsing, name resolution and HIR construction are out-of-scope
// external collaborators (spec §1): Session.Compile takes an already-built
// MIR function rather than Fax source text, and drives only the stages
// this repository owns — MIR verification and optimization, MIR→LIR
// lowering, and code emission.
package driver

import (
	"errors"
	"fmt"

	"github.com/faxlang/faxc/internal/backend/emit"
	"github.com/faxlang/faxc/internal/backend/lower"
	"github.com/faxlang/faxc/internal/lir"
	"github.com/faxlang/faxc/internal/logging"
	"github.com/faxlang/faxc/internal/mir"
	"github.com/faxlang/faxc/internal/mir/optimize"
	"github.com/faxlang/faxc/internal/types"
)

// EmitType names the pipeline stage the driver stops at, matching §6's
// `--emit {tokens|ast|hir|mir|lir|asm|object|exe}`.
type EmitType int

const (
	EmitTokens EmitType = iota
	EmitAst
	EmitHir
	EmitMir
	EmitLir
	EmitAsm
	EmitObject
	EmitExe
)

func (e EmitType) String() string {
	switch e {
	case EmitTokens:
		return "tokens"
	case EmitAst:
		return "ast"
	case EmitHir:
		return "hir"
	case EmitMir:
		return "mir"
	case EmitLir:
		return "lir"
	case EmitAsm:
		return "asm"
	case EmitObject:
		return "object"
	default:
		return "exe"
	}
}

// ErrFrontEndUnavailable is returned for the tokens/ast/hir emit stages:
// this driver has no lexer, parser, or HIR builder wired in (spec §1 lists
// them as external collaborators), so it cannot stop the pipeline there.
var ErrFrontEndUnavailable = errors.New("driver: lexing/parsing/HIR construction are not implemented by this backend")

// ParseEmitType parses one of §6's --emit values.
func ParseEmitType(s string) (EmitType, error) {
	switch s {
	case "tokens":
		return EmitTokens, nil
	case "ast":
		return EmitAst, nil
	case "hir":
		return EmitHir, nil
	case "mir":
		return EmitMir, nil
	case "lir":
		return EmitLir, nil
	case "asm":
		return EmitAsm, nil
	case "object":
		return EmitObject, nil
	case "exe":
		return EmitExe, nil
	default:
		return 0, fmt.Errorf("driver: unrecognized --emit value %q", s)
	}
}

// Config mirrors faxc-drv's Config: the CLI-level compilation options
// (§6's recognized CLI flags), independent of any one input file.
type Config struct {
	Output      string
	Emit        EmitType
	Verbose     bool
	Target      string
	Incremental bool
}

// DefaultConfig returns §6's defaults: emit a linked executable for the
// host triple.
func DefaultConfig() Config {
	return Config{Emit: EmitExe, Target: HostTriple()}
}

// CompileResult carries every intermediate product Session.Compile
// produced, so callers (the CLI, tests) can inspect whichever stage they
// asked to stop at.
type CompileResult struct {
	Mir *mir.Function
	Lir *lir.Function
	IR  string // LLVM-style textual IR from the emitter
	Asm string // textual pseudo-assembly from EmitAssembly
}

// Session drives one compilation, grounded on faxc-drv's Session: it owns
// the Config plus a logger the way Session owns Config plus diagnostics.
type Session struct {
	config Config
	log    *logging.Logger
}

// NewSession builds a Session over config. log may be nil, in which case
// verbose tracing is discarded.
func NewSession(config Config, log *logging.Logger) *Session {
	if log == nil {
		log = logging.Discard
	}
	return &Session{config: config, log: log}
}

// Compile runs prog (a function a front end has already lowered to MIR)
// through every stage this package owns, stopping as soon as it reaches
// s.config.Emit. Grounded on Session::compile, which in the original
// drives faxc-mir → faxc-lir → faxc-gen in sequence and returns as soon as
// the configured EmitType is produced.
func (s *Session) Compile(prog *mir.Function, retTy types.Type) (*CompileResult, error) {
	switch s.config.Emit {
	case EmitTokens, EmitAst, EmitHir:
		return nil, ErrFrontEndUnavailable
	}

	s.log.Verbose("[driver] verifying MIR for %q", prog.Name.String())
	if err := mir.Verify(prog); err != nil {
		return nil, fmt.Errorf("driver: MIR verification failed: %w", err)
	}

	s.log.Verbose("[driver] optimizing MIR for %q", prog.Name.String())
	optimize.Run(prog)

	result := &CompileResult{Mir: prog}
	if s.config.Emit == EmitMir {
		return result, nil
	}

	s.log.Verbose("[driver] lowering %q to LIR", prog.Name.String())
	lirFn := lower.Lower(prog)
	result.Lir = lirFn
	if s.config.Emit == EmitLir {
		return result, nil
	}

	if s.config.Emit == EmitAsm {
		s.log.Verbose("[driver] emitting assembly for %q", prog.Name.String())
		result.Asm = emit.EmitAssembly(lirFn)
		if formatted, err := emit.FormatAssembly(result.Asm); err == nil {
			result.Asm = string(formatted)
		}
		return result, nil
	}

	s.log.Verbose("[driver] emitting IR for %q", prog.Name.String())
	ir, err := emit.EmitFunction(lirFn, retTy)
	if err != nil {
		return nil, fmt.Errorf("driver: code generation failed: %w", err)
	}
	result.IR = ir

	if s.config.Emit == EmitObject || s.config.Emit == EmitExe {
		if err := compileIR(s, ir); err != nil {
			return nil, err
		}
	}

	return result, nil
}
