package llvm

import (
	"fmt"

	golvm "tinygo.org/x/go-llvm"
)

// JIT wraps an ORC execution session sized for exactly one module: the
// common case for this compiler, which JITs one translation unit and runs
// or looks up symbols from it (spec.md §4.5 "JIT adapter").
//
// The teacher repo only ever emits IR to disk/textual form and never
// links a JIT in (grep internal/codegen/llvm's reasoning notes in
// DESIGN.md), so this wrapper is grounded on the go-llvm OrcV2 binding
// surface itself rather than on teacher code: an execution session owns
// an object-linking layer and an IR-compile layer, a JIT dylib receives
// added modules under a resource tracker, and Lookup resolves a symbol
// to its runtime address.
type JIT struct {
	ctx    golvm.Context
	lljit  golvm.OrcLLJIT
	active []golvm.OrcResourceTracker
}

// NewJIT creates an LLJIT instance and takes ownership of ctx: the
// context must stay alive for as long as the JIT does, since every
// module added to it was built against ctx's types.
func NewJIT(ctx golvm.Context) (*JIT, error) {
	lljit, err := golvm.NewOrcLLJIT()
	if err != nil {
		return nil, fmt.Errorf("create LLJIT instance: %w", err)
	}
	return &JIT{ctx: ctx, lljit: lljit}, nil
}

// AddModule hands mod to the JIT's main JITDylib under a fresh resource
// tracker, so the caller can later release exactly this module's code
// with Close without tearing down the whole session.
func (j *JIT) AddModule(mod golvm.Module) error {
	tsctx := golvm.NewOrcThreadSafeContext(j.ctx)
	tsm := golvm.NewOrcThreadSafeModule(mod, tsctx)

	rt := j.lljit.MainJITDylib().CreateResourceTracker()
	if err := j.lljit.AddLLVMIRModuleWithRT(rt, tsm); err != nil {
		return fmt.Errorf("add module to JIT: %w", err)
	}
	j.active = append(j.active, rt)
	return nil
}

// Lookup resolves name to its JITed runtime address. Callers cast the
// result through unsafe.Pointer to the function's known Go signature,
// e.g. `*(*func(int32) int32)(unsafe.Pointer(&addr))`; the end-to-end
// test harness (spec.md §8) knows each scenario's exact signature up
// front, so that cast lives there rather than in this package.
func (j *JIT) Lookup(name string) (uintptr, error) {
	addr, err := j.lljit.LookupSymbol(name)
	if err != nil {
		return 0, fmt.Errorf("lookup symbol %s: %w", name, err)
	}
	return uintptr(addr), nil
}

// Close releases every module this JIT holds and disposes the session.
// The context passed to NewJIT is disposed too, since it now owns no
// live module.
func (j *JIT) Close() error {
	for _, rt := range j.active {
		if err := rt.Remove(); err != nil {
			return fmt.Errorf("release JIT module: %w", err)
		}
	}
	j.active = nil
	if err := j.lljit.Close(); err != nil {
		return fmt.Errorf("close LLJIT instance: %w", err)
	}
	j.ctx.Dispose()
	return nil
}
