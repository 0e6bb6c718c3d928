package main

import (
	"fmt"
	"os"

	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/layout"
	"github.com/wippyai/jit-layout/typesys/static"
	"github.com/wippyai/jit-layout/typesys/witsys"
)

// catalog is a type system whose classes can be found by name.
type catalog interface {
	jitlayout.TypeSystem
	Lookup(name string) (jitlayout.ClassHandle, bool)
	Names() []string
	IsArray(h jitlayout.ClassHandle) bool
	Kind(h jitlayout.ClassHandle) string
}

type source struct {
	ts     catalog
	label  string
	target layout.Target
}

func targetFor(ptr uint32) layout.Target {
	if ptr == 4 {
		return layout.Target32()
	}
	return layout.Target64()
}

// loadSource opens the type description named by the flags. With neither
// file given, an empty static type system serves block layouts only.
func loadSource(typesFile, witFile string, ptr uint32) (*source, error) {
	if typesFile != "" && witFile != "" {
		return nil, fmt.Errorf("use either -types or -wit, not both")
	}
	if ptr != 0 && ptr != 4 && ptr != 8 {
		return nil, fmt.Errorf("pointer size must be 4 or 8, got %d", ptr)
	}

	switch {
	case typesFile != "":
		ts, err := static.LoadFile(typesFile)
		if err != nil {
			return nil, err
		}
		if ptr != 0 && ptr != ts.PointerSize() {
			return nil, fmt.Errorf("%s describes %d-byte pointers, -ptr is %d", typesFile, ts.PointerSize(), ptr)
		}
		return &source{ts: ts, label: typesFile, target: targetFor(ts.PointerSize())}, nil

	case witFile != "":
		if ptr != 0 && ptr != witsys.PointerSize {
			return nil, fmt.Errorf("WIT layouts use %d-byte pointers, -ptr is %d", witsys.PointerSize, ptr)
		}
		f, err := os.Open(witFile)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", witFile, err)
		}
		defer f.Close()

		ts, err := witsys.LoadJSON(f)
		if err != nil {
			return nil, err
		}
		return &source{ts: ts, label: witFile, target: witsys.Target()}, nil
	}

	if ptr == 0 {
		ptr = static.DefaultPointerSize
	}
	ts, err := static.Load(fmt.Appendf(nil, "pointerSize: %d\n", ptr))
	if err != nil {
		return nil, err
	}
	return &source{ts: ts, label: "(no types)", target: targetFor(ptr)}, nil
}
