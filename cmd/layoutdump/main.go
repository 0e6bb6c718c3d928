package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/jit-layout/arena"
	"github.com/wippyai/jit-layout/arena/wasmhost"
	"github.com/wippyai/jit-layout/compiler"
	"github.com/wippyai/jit-layout/layout"
	"github.com/wippyai/jit-layout/typesys/witsys"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	typesFile   string
	witFile     string
	pageSize    string
	classes     []string
	arrays      []string
	blocks      []string
	ptr         uint
	wasmPages   uint
	wasmHost    bool
	interactive bool
	verbose     bool
}

func main() {
	var (
		opts            options
		classes, arrays listFlag
		blocks          listFlag
	)
	flag.StringVar(&opts.typesFile, "types", "", "YAML class description")
	flag.StringVar(&opts.witFile, "wit", "", "WIT resolve in JSON form (wasm-tools component wit --json)")
	flag.Var(&classes, "class", "Class to lay out (repeatable; default: every class)")
	flag.Var(&arrays, "array", "Array layout NAME:LEN (repeatable)")
	flag.Var(&blocks, "block", "Block layout of SIZE bytes, e.g. 24 or 1KiB (repeatable)")
	flag.UintVar(&opts.ptr, "ptr", 0, "Target pointer size, 4 or 8 (default: from the type description)")
	flag.StringVar(&opts.pageSize, "page-size", "64KiB", "Arena page size")
	flag.BoolVar(&opts.wasmHost, "wasm-host", false, "Back the arena with wasm linear memory")
	flag.UintVar(&opts.wasmPages, "wasm-pages", 0, "Linear memory limit in 64KiB pages (default 1024)")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.BoolVar(&opts.verbose, "v", false, "Debug logging to stderr")
	flag.Parse()

	opts.classes, opts.arrays, opts.blocks = classes, arrays, blocks

	if opts.interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: -i needs a terminal")
		os.Exit(1)
	}

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func run(opts options, w io.Writer) error {
	ctx := context.Background()

	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	arena.SetLogger(logger.Named("arena"))
	layout.SetLogger(logger.Named("layout"))
	compiler.SetLogger(logger.Named("compiler"))
	witsys.SetLogger(logger.Named("witsys"))

	src, err := loadSource(opts.typesFile, opts.witFile, uint32(opts.ptr))
	if err != nil {
		return err
	}

	cfg := compiler.DefaultConfig()
	pageSize, err := parseSize(opts.pageSize)
	if err != nil {
		return fmt.Errorf("page size %q: %w", opts.pageSize, err)
	}
	cfg.Arena.PageSize = uintptr(pageSize)

	if opts.wasmHost {
		host, err := wasmhost.New(ctx, wasmhost.Config{MaxPages: uint32(opts.wasmPages)}, logger.Named("wasmhost"))
		if err != nil {
			return fmt.Errorf("create wasm host: %w", err)
		}
		defer host.Close(ctx)
		cfg.Host = host
	}

	reqs, err := requests(opts, src)
	if err != nil {
		return err
	}

	s := newSession(src, cfg, logger)
	defer s.close()

	for _, r := range reqs {
		if _, err := s.apply(r); err != nil {
			if opts.interactive {
				logger.Warn("request failed", zap.Error(err))
				continue
			}
			return err
		}
	}

	if opts.interactive {
		return runInteractive(s)
	}
	return writeReport(w, s)
}

// requests builds the layout requests named on the command line. With none
// given, every non-array class is requested.
func requests(opts options, src *source) ([]request, error) {
	var reqs []request
	for _, name := range opts.classes {
		reqs = append(reqs, request{kind: requestClass, name: name})
	}
	for _, a := range opts.arrays {
		r, err := parseArray(a)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	for _, b := range opts.blocks {
		r, err := parseBlock(b)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}

	if len(reqs) == 0 {
		for _, name := range src.ts.Names() {
			h, _ := src.ts.Lookup(name)
			if !src.ts.IsArray(h) {
				reqs = append(reqs, request{kind: requestClass, name: name})
			}
		}
	}
	return reqs, nil
}

func writeReport(w io.Writer, s *session) error {
	entries, err := s.entries()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Types: %s\n", s.src.label)
	fmt.Fprintf(w, "Target: %d-byte pointers\n", s.src.target.PointerSize)

	for _, e := range entries {
		fmt.Fprintf(w, "\n%s\n", e.summary())
		for _, line := range e.details() {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	fmt.Fprintf(w, "\nArena: %s\n", s.stats())
	return nil
}
