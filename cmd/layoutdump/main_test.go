package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/wippyai/jit-layout/compiler"
)

const classes = `
pointerSize: 8
classes:
  - name: Point
    fields:
      - {name: X, type: int}
      - {name: Y, type: int}
  - name: Pair
    fields:
      - {name: Key, type: ref}
      - {name: Value, type: int}
  - name: Node
    kind: class
    fields:
      - {name: Next, type: Node}
      - {name: Value, type: Point}
  - name: Node[]
    kind: array
    element: Node
`

func writeTypes(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "classes.yaml")
	if err := os.WriteFile(path, []byte(classes), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		line    string
		want    request
		wantErr bool
	}{
		{line: "class Pair", want: request{kind: requestClass, name: "Pair"}},
		{line: "  c  Pair ", want: request{kind: requestClass, name: "Pair"}},
		{line: "array Node[]:4", want: request{kind: requestArray, name: "Node[]", length: 4}},
		{line: "a wasi:io/streams.bytes:2", want: request{kind: requestArray, name: "wasi:io/streams.bytes", length: 2}},
		{line: "block 24", want: request{kind: requestBlock, size: 24}},
		{line: "b 1KiB", want: request{kind: requestBlock, size: 1024}},
		{line: "block", wantErr: true},
		{line: "array Node[]", wantErr: true},
		{line: "array :4", wantErr: true},
		{line: "array Node[]:-1", wantErr: true},
		{line: "block 5GiB", wantErr: true},
		{line: "struct Pair", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseRequest(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadSourceErrors(t *testing.T) {
	path := writeTypes(t)

	tests := []struct {
		name      string
		typesFile string
		witFile   string
		ptr       uint32
		want      string
	}{
		{"both", path, "x.json", 0, "either"},
		{"bad ptr", "", "", 2, "4 or 8"},
		{"ptr mismatch", path, "", 4, "8-byte pointers"},
		{"wit ptr", "", "x.json", 8, "4-byte pointers"},
		{"missing wit", "", filepath.Join(t.TempDir(), "none.json"), 0, "open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadSource(tt.typesFile, tt.witFile, tt.ptr)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadSourceBlocksOnly(t *testing.T) {
	src, err := loadSource("", "", 4)
	if err != nil {
		t.Fatal(err)
	}
	if src.target.PointerSize != 4 {
		t.Errorf("pointer size = %d", src.target.PointerSize)
	}
	if len(src.ts.Names()) != 0 {
		t.Errorf("names = %v", src.ts.Names())
	}
}

func TestRunReport(t *testing.T) {
	var out bytes.Buffer
	err := run(options{
		typesFile: writeTypes(t),
		classes:   []string{"Pair", "Node"},
		arrays:    []string{"Node[]:2"},
		blocks:    []string{"24"},
		pageSize:  "4KiB",
	}, &out)
	if err != nil {
		t.Fatal(err)
	}

	report := out.String()
	for _, want := range []string{
		"Target: 8-byte pointers",
		"Pair",
		"copy:        [0,8)gc [8,12) (12 bytes, 4 skipped)",
		"gc map:      R.",
		"gc slots:    8:ref",
		"Node[][2]",
		"kind:        array",
		"gc map:      ..RR",
		"kind:        block",
		"block<24>",
		"Arena: 4 layouts",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report lacks %q:\n%s", want, report)
		}
	}
}

func TestRunDefaultsToEveryClass(t *testing.T) {
	var out bytes.Buffer
	if err := run(options{typesFile: writeTypes(t), pageSize: "64KiB"}, &out); err != nil {
		t.Fatal(err)
	}
	report := out.String()
	for _, name := range []string{"Point", "Pair", "Node"} {
		if !strings.Contains(report, name) {
			t.Errorf("report lacks %s", name)
		}
	}
	if !strings.Contains(report, "Arena: 3 layouts") {
		t.Errorf("arrays should not be laid out by default:\n%s", report)
	}
}

func TestRunUnknownClass(t *testing.T) {
	err := run(options{typesFile: writeTypes(t), classes: []string{"Missing"}, pageSize: "64KiB"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "Missing") {
		t.Errorf("err = %v", err)
	}
}

func TestRunWasmHost(t *testing.T) {
	var out bytes.Buffer
	err := run(options{
		blocks:    []string{"24", "1KiB"},
		pageSize:  "64KiB",
		wasmHost:  true,
		wasmPages: 16,
	}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "block<1024>") {
		t.Errorf("report:\n%s", out.String())
	}
}

func newTestSession(t *testing.T) *session {
	t.Helper()
	src, err := loadSource(writeTypes(t), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	s := newSession(src, compiler.DefaultConfig(), zap.NewNop())
	t.Cleanup(s.close)
	return s
}

func TestSessionReplaysAfterAbort(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.apply(request{kind: requestClass, name: "Pair"}); err != nil {
		t.Fatal(err)
	}
	before := s.unit

	_, err := s.apply(request{kind: requestArray, name: "Node[]", length: 0x80000000})
	if err == nil {
		t.Fatal("expected oversized array to fail")
	}
	if s.unit == before {
		t.Fatal("aborted unit was kept")
	}
	if s.unit.Failed() {
		t.Fatal("replacement unit failed")
	}

	entries, err := s.entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].layout.Name() != "Pair" {
		t.Errorf("entries after replay = %d", len(entries))
	}
}

func TestSessionRejectsNonArray(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.apply(request{kind: requestArray, name: "Pair", length: 2}); err == nil {
		t.Fatal("expected error")
	}
	if s.unit.Failed() {
		t.Error("ordinary lookup error aborted the unit")
	}
}

func TestInteractiveModel(t *testing.T) {
	s := newTestSession(t)
	for _, name := range []string{"Point", "Pair"} {
		if _, err := s.apply(request{kind: requestClass, name: name}); err != nil {
			t.Fatal(err)
		}
	}

	m := newInteractiveModel(s)
	if len(m.entries) != 2 {
		t.Fatalf("entries = %d", len(m.entries))
	}

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 1 {
		t.Errorf("selected = %d after down", m.selected)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 1 {
		t.Errorf("selected = %d past end", m.selected)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if m.state != stateRequest {
		t.Fatal("n did not open the request prompt")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("block 40")})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.err != nil {
		t.Fatalf("err = %v", m.err)
	}
	if len(m.entries) != 3 || m.entries[m.selected].layout.Name() != "block<40>" {
		t.Errorf("selected %d of %d after request", m.selected, len(m.entries))
	}
	if !strings.Contains(m.View(), "block<40>") {
		t.Error("view lacks the new layout")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("class Nope")})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.err == nil || !strings.Contains(m.View(), "Nope") {
		t.Error("unknown class not reported")
	}

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Error("q did not quit")
	}
}
