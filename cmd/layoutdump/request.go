package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/docker/go-units"

	"github.com/wippyai/jit-layout/compiler"
	"github.com/wippyai/jit-layout/errors"
	"github.com/wippyai/jit-layout/layout"
)

type requestKind int

const (
	requestClass requestKind = iota
	requestArray
	requestBlock
)

// request names one layout to materialize in the table.
type request struct {
	name   string
	kind   requestKind
	length uint32
	size   uint32
}

func (r request) String() string {
	switch r.kind {
	case requestArray:
		return fmt.Sprintf("array %s:%d", r.name, r.length)
	case requestBlock:
		return fmt.Sprintf("block %d", r.size)
	default:
		return "class " + r.name
	}
}

// parseRequest parses one line typed into the browser:
//
//	class Pair
//	array Node[]:4
//	block 24 | block 1KiB
func parseRequest(line string) (request, error) {
	verb, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return request{}, fmt.Errorf("usage: class NAME | array NAME:LEN | block SIZE")
	}

	switch verb {
	case "class", "c":
		return request{kind: requestClass, name: arg}, nil
	case "array", "a":
		return parseArray(arg)
	case "block", "b":
		return parseBlock(arg)
	}
	return request{}, fmt.Errorf("unknown request %q", verb)
}

// parseArray parses NAME:LEN. The last colon separates the length so that
// names may contain colons themselves.
func parseArray(s string) (request, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return request{}, fmt.Errorf("array %q: want NAME:LEN", s)
	}
	n, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil {
		return request{}, fmt.Errorf("array %q: bad length: %w", s, err)
	}
	return request{kind: requestArray, name: s[:i], length: uint32(n)}, nil
}

func parseBlock(s string) (request, error) {
	size, err := parseSize(s)
	if err != nil {
		return request{}, fmt.Errorf("block %q: %w", s, err)
	}
	return request{kind: requestBlock, size: size}, nil
}

// parseSize accepts plain byte counts and human sizes such as 64KiB.
func parseSize(s string) (uint32, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("size %d out of range", n)
	}
	return uint32(n), nil
}

// resolve materializes the layout. Unknown names are ordinary errors; engine
// failures abort the unit.
func (r request) resolve(u *compiler.Unit, cat catalog) (*layout.ClassLayout, error) {
	t := u.Layouts()
	if r.kind == requestBlock {
		return t.BlockLayout(r.size), nil
	}

	h, ok := cat.Lookup(r.name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseLookup, "class", r.name)
	}

	if r.kind == requestArray {
		if !cat.IsArray(h) {
			return nil, errors.InvalidInput(errors.PhaseLookup, r.name+" is not an array type")
		}
		return t.ArrayLayout(h, r.length), nil
	}
	return t.ObjLayout(h), nil
}
