package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tidwall/gjson"

	"github.com/watchexec/corewatch/internal/event"
	"github.com/watchexec/corewatch/internal/werrors"
)

// ProgramFilter is stage 5: user-provided expressions evaluated against a
// JSON projection of the Event (spec §4.4 stage 5, §9 "a sandboxed program
// evaluator"). Each configured program is a path to a precompiled
// WebAssembly module exporting:
//
//	alloc(size i32) i32        -- returns a pointer into guest memory
//	filter(ptr i32, len i32) i32 -- 0 reject, non-zero accept
//
// wazero runs every module in its default (capability-less) sandbox: no
// filesystem, network, or host-function access is granted, so a filter
// program cannot do anything but inspect the bytes it is given and return
// a verdict.
type ProgramFilter struct {
	runtime wazero.Runtime
	mu      sync.Mutex
	progs   []*compiledProgram
}

type compiledProgram struct {
	path     string
	compiled wazero.CompiledModule
	mu       sync.Mutex // guests are not safe for concurrent calls
	mod      api.Module
	alloc    api.Function
	filter   api.Function
}

// NewProgramFilter compiles and instantiates every wasm module at paths.
// ctx bounds the compilation/instantiation step only, not evaluation.
func NewProgramFilter(ctx context.Context, paths []string) (*ProgramFilter, error) {
	rt := wazero.NewRuntime(ctx)
	pf := &ProgramFilter{runtime: rt}
	for _, p := range paths {
		cp, err := pf.load(ctx, p)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, werrors.Wrap(werrors.Configuration, fmt.Sprintf("loading program filter %q", p), err)
		}
		pf.progs = append(pf.progs, cp)
	}
	return pf, nil
}

func (pf *ProgramFilter) load(ctx context.Context, path string) (*compiledProgram, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	compiled, err := pf.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, err
	}
	mod, err := pf.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(path))
	if err != nil {
		return nil, err
	}
	alloc := mod.ExportedFunction("alloc")
	filterFn := mod.ExportedFunction("filter")
	if alloc == nil || filterFn == nil {
		return nil, fmt.Errorf("module %q does not export alloc/filter", path)
	}
	return &compiledProgram{path: path, compiled: compiled, mod: mod, alloc: alloc, filter: filterFn}, nil
}

func (*ProgramFilter) Name() string { return "program-filters" }

// Accept evaluates every configured program in order against the JSON
// projection of e; the first program to return false rejects, matching
// spec §4.4 stage 5 "short-circuit on first rejection". A program that
// errors (trap, bad module) is treated as a rejection and surfaced as a
// werrors.Filter error, per spec §7.
func (pf *ProgramFilter) Accept(e event.Event) (bool, error) {
	if len(pf.progs) == 0 {
		return true, nil
	}
	projection, err := projectEvent(e)
	if err != nil {
		return false, werrors.Wrap(werrors.Filter, "building JSON projection", err)
	}
	ctx := context.Background()
	for _, p := range pf.progs {
		ok, err := p.evaluate(ctx, projection)
		if err != nil {
			return false, werrors.Wrap(werrors.Filter, fmt.Sprintf("program %q", p.path), err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (p *compiledProgram) evaluate(ctx context.Context, jsonProjection []byte) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	size := uint64(len(jsonProjection))
	results, err := p.alloc.Call(ctx, size)
	if err != nil {
		return false, fmt.Errorf("alloc: %w", err)
	}
	ptr := results[0]

	mem := p.mod.Memory()
	if !mem.Write(uint32(ptr), jsonProjection) {
		return false, fmt.Errorf("writing %d bytes at offset %d out of guest memory range", size, ptr)
	}

	out, err := p.filter.Call(ctx, ptr, size)
	if err != nil {
		return false, fmt.Errorf("filter: %w", err)
	}
	return out[0] != 0, nil
}

// Close releases every compiled module and the shared runtime.
func (pf *ProgramFilter) Close(ctx context.Context) error {
	return pf.runtime.Close(ctx)
}

// projectEvent builds the JSON shape handed to program filters: the same
// tags/metadata wire format as spec §6's JSON event format, plus a flat
// "paths" convenience array (queried with gjson by simple expressions
// embedded in the module, e.g. `paths.0`).
func projectEvent(e event.Event) ([]byte, error) {
	var paths []string
	for _, p := range e.Paths() {
		paths = append(paths, p.Path)
	}
	base, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return base, nil
	}
	// Splice the convenience "paths" array into the already-marshalled
	// object using gjson's sibling, sjson, would add another dependency;
	// instead decode-merge-reencode using the stdlib plus gjson for the
	// read side that callers of this package use elsewhere (see
	// Project(), below) to keep a single source of truth for field
	// access.
	var m map[string]json.RawMessage
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	pathsJSON, err := json.Marshal(paths)
	if err != nil {
		return nil, err
	}
	m["paths"] = pathsJSON
	return json.Marshal(m)
}

// Project returns the gjson-parsed JSON projection of e, for use by
// diagnostics (e.g. `--print-events`) and tests that want to assert on a
// specific field without round-tripping through a wasm module.
func Project(e event.Event) (gjson.Result, error) {
	data, err := projectEvent(e)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(data), nil
}
