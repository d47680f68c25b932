// Command klangc is a thin demonstration driver over the compiler core:
// it reads a source file, runs it through lex/parse/lower/resolve/emit,
// optionally JITs and runs a named entry function, and prints every
// diagnostic logged along the way. It is intentionally small: the real
// engineering lives in internal/, per spec.md's "CLI driver is external"
// boundary.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"unsafe"

	"github.com/spf13/pflag"
	golvm "tinygo.org/x/go-llvm"

	"github.com/EmilienKia/klang-sub000/internal/diag"
	"github.com/EmilienKia/klang-sub000/internal/model"
	"github.com/EmilienKia/klang-sub000/internal/parser"
	"github.com/EmilienKia/klang-sub000/internal/resolve"

	llvmgen "github.com/EmilienKia/klang-sub000/internal/codegen/llvm"
)

const appVersion = "klangc 1.0"

const maxThreads = 64

var (
	flagVersion  = pflag.BoolP("version", "v", false, "Print the compiler version and exit.")
	flagThreads  = pflag.IntP("threads", "t", 1, "Worker count for the parallel global/function-header emission pass.")
	flagOptimize = pflag.BoolP("optimize", "O", true, "Run the function-pass-manager cleanup pass before verifying the module.")
	flagRun      = pflag.StringP("run", "r", "", "JIT-compile the module and call the named zero/one/two-int-argument function, printing its result.")
	flagArgs     = pflag.Int32SliceP("args", "a", nil, "Integer arguments to pass to -run's function (up to two).")
)

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Println(appVersion)
		return
	}
	if *flagThreads < 1 || *flagThreads > maxThreads {
		fmt.Fprintf(os.Stderr, "klangc: -threads must be in range [1, %d]\n", maxThreads)
		os.Exit(1)
	}
	if pflag.NArg() != 1 {
		printUsage()
		os.Exit(1)
	}

	if err := run(pflag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "klangc: %s\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: klangc [flags] <source-file>")
	w := tabwriter.NewWriter(os.Stderr, 6, 1, 1, ' ', 0)
	pflag.CommandLine.VisitAll(func(f *pflag.Flag) {
		fmt.Fprintf(w, "-%s, --%s\t%s\n", f.Shorthand, f.Name, f.Usage)
	})
	_ = w.Flush()
}

// run orchestrates the whole pipeline for one source file, mirroring the
// teacher's own run(opt util.Options) error shape: read, parse, lower,
// resolve, then either emit+dump or emit+JIT+call, printing diagnostics
// at whichever stage first reports errors.
func run(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read source file: %w", err)
	}

	col := diag.NewCollector()

	u, err := parser.Parse(string(src), col)
	if err := reportAndReturn("parse", err, col); err != nil {
		return err
	}

	m, err := model.Lower(u, col)
	if err := reportAndReturn("lowering", err, col); err != nil {
		return err
	}

	if err := resolve.Resolve(m, col); err != nil {
		return reportAndReturn("resolve", err, col)
	}
	if col.HasErrors() {
		printDiagnostics(col)
		return fmt.Errorf("resolve reported errors")
	}

	opts := llvmgen.Options{Threads: *flagThreads, Optimize: *flagOptimize}
	ctx, mod, err := llvmgen.Emit(m, path, opts, col)
	if err != nil {
		printDiagnostics(col)
		return fmt.Errorf("codegen error: %w", err)
	}

	printDiagnostics(col)
	if *flagRun != "" {
		return runJIT(ctx, mod, *flagRun, *flagArgs)
	}

	dumpIR(mod)
	return nil
}

// reportAndReturn prints whatever landed in col and turns a non-nil stage
// error into the function's return value; it is a no-op when err is nil,
// letting call sites chain it without repeating the print+wrap logic at
// every stage boundary.
func reportAndReturn(stage string, err error, col *diag.Collector) error {
	if err == nil {
		return nil
	}
	printDiagnostics(col)
	return fmt.Errorf("%s error: %w", stage, err)
}

func printDiagnostics(col *diag.Collector) {
	for _, e := range col.Entries() {
		fmt.Fprintln(os.Stderr, e.String())
	}
}

func dumpIR(mod golvm.Module) {
	fmt.Println(mod.String())
}

// runJIT compiles mod, looks up name, and calls it with up to two int32
// arguments, matching the signatures spec.md §8's end-to-end scenarios
// use. It exists purely so -run is exercisable from the command line;
// the actual per-signature trampoline knowledge needed for arbitrary
// user functions is out of scope for this demo driver.
func runJIT(ctx golvm.Context, mod golvm.Module, name string, args []int32) error {
	jit, err := llvmgen.NewJIT(ctx)
	if err != nil {
		return err
	}
	defer jit.Close()

	if err := jit.AddModule(mod); err != nil {
		return err
	}

	addr, err := jit.Lookup(name)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", name, err)
	}

	switch len(args) {
	case 0:
		fn := *(*func() int32)(unsafe.Pointer(&addr))
		fmt.Println(fn())
	case 1:
		fn := *(*func(int32) int32)(unsafe.Pointer(&addr))
		fmt.Println(fn(args[0]))
	case 2:
		fn := *(*func(int32, int32) int32)(unsafe.Pointer(&addr))
		fmt.Println(fn(args[0], args[1]))
	default:
		return fmt.Errorf("-run supports at most two arguments, got %d", len(args))
	}
	return nil
}
