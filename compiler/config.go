package compiler

import (
	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/arena"
	"github.com/wippyai/jit-layout/layout"
)

// Config holds configuration for compilation units
type Config struct {
	// Host supplies arena pages. nil gives every unit its own Go heap host.
	// A shared host must be safe for concurrent use when Workers > 1.
	Host jitlayout.SlabHost

	// Arena configures each unit's allocator. Its PointerSize is replaced
	// by Target's.
	Arena arena.Options

	// Target is the machine layouts are computed for.
	Target layout.Target

	// Workers bounds the goroutines Compile uses.
	// 0 means runtime.GOMAXPROCS(0).
	Workers int
}

// DefaultConfig returns a 64-bit configuration with default arena options.
func DefaultConfig() Config {
	return Config{
		Arena:  arena.DefaultOptions(),
		Target: layout.Target64(),
	}
}
