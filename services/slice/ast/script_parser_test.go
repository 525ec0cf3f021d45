package ast

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func specByRaw(specs []Specifier, raw string) *Specifier {
	for i := range specs {
		if specs[i].Raw == raw {
			return &specs[i]
		}
	}
	return nil
}

func TestScriptParser_Parse_ImportShapes(t *testing.T) {
	parser := NewScriptParser()
	content := `import Vue from 'vue'
import { a, b as c } from './utils'
import * as ns from '@/lib'
import './side-effect.css'
export { x, y as z } from './reexp'
export * from './star'
const m = require('./cjs')
const lazy = () => import('./lazy.vue')
`
	specs, err := parser.Parse(context.Background(), []byte(content), "/repo/src/main.js", LangJavaScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []struct {
		raw   string
		names []string
		kind  RefKind
	}{
		{"vue", []string{"default"}, RefStaticImport},
		{"./utils", []string{"a", "b"}, RefStaticImport},
		{"@/lib", []string{"*"}, RefStaticImport},
		{"./side-effect.css", nil, RefStaticImport},
		{"./reexp", []string{"x", "y"}, RefReExport},
		{"./star", []string{"*"}, RefReExport},
		{"./cjs", []string{"*"}, RefDynamicCall},
		{"./lazy.vue", []string{"*"}, RefDynamicCall},
	}
	if len(specs) != len(want) {
		t.Fatalf("expected %d specifiers, got %d: %+v", len(want), len(specs), specs)
	}
	for i, w := range want {
		got := specs[i]
		if got.Raw != w.raw {
			t.Errorf("spec %d: expected raw %q, got %q", i, w.raw, got.Raw)
		}
		if !reflect.DeepEqual(got.Symbols.Names, w.names) {
			t.Errorf("spec %q: expected names %v, got %v", w.raw, w.names, got.Symbols.Names)
		}
		if got.Symbols.Kind != w.kind {
			t.Errorf("spec %q: expected kind %s, got %s", w.raw, w.kind, got.Symbols.Kind)
		}
		if got.Dir != "/repo/src" {
			t.Errorf("spec %q: expected dir /repo/src, got %q", w.raw, got.Dir)
		}
	}
}

func TestScriptParser_Parse_SkipsComputedLoads(t *testing.T) {
	parser := NewScriptParser()
	content := `const name = 'x'
const a = require(name)
const b = import('./pages/' + name)
const c = require(` + "`./tpl/${name}`" + `)
const d = require(` + "`./static-tpl`" + `)
`
	specs, err := parser.Parse(context.Background(), []byte(content), "/repo/a.js", LangJavaScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected only the static template literal, got %+v", specs)
	}
	if specs[0].Raw != "./static-tpl" {
		t.Errorf("expected ./static-tpl, got %q", specs[0].Raw)
	}
}

func TestScriptParser_Parse_MagicComment(t *testing.T) {
	parser := NewScriptParser()
	content := `const Page = () => import(/* webpackChunkName: "page" */ './Page.vue')`
	specs, err := parser.Parse(context.Background(), []byte(content), "/repo/router.js", LangJavaScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 1 || specs[0].Raw != "./Page.vue" {
		t.Fatalf("expected ./Page.vue, got %+v", specs)
	}
	if specs[0].Line != 1 {
		t.Errorf("expected line 1, got %d", specs[0].Line)
	}
}

func TestScriptParser_Parse_TypeScript(t *testing.T) {
	parser := NewScriptParser()
	content := `import { Store } from './store'
export interface Props { id: number }
export const count: number = 1
export { helper } from './helper'
`
	specs, err := parser.Parse(context.Background(), []byte(content), "/repo/a.ts", LangTypeScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := specByRaw(specs, "./store"); s == nil || !reflect.DeepEqual(s.Symbols.Names, []string{"Store"}) {
		t.Errorf("expected ./store with [Store], got %+v", s)
	}
	if s := specByRaw(specs, "./helper"); s == nil || s.Symbols.Kind != RefReExport {
		t.Errorf("expected ./helper re-export, got %+v", s)
	}
}

func TestScriptParser_Parse_EmptyFile(t *testing.T) {
	parser := NewScriptParser()
	specs, err := parser.Parse(context.Background(), []byte(""), "/repo/empty.js", LangJavaScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 0 {
		t.Errorf("expected no specifiers, got %d", len(specs))
	}
}

func TestScriptParser_Parse_TooLarge(t *testing.T) {
	parser := NewScriptParser(WithScriptMaxFileSize(8))
	_, err := parser.Parse(context.Background(), []byte("import a from './a'"), "/repo/a.js", LangJavaScript)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestScriptParser_Parse_Canceled(t *testing.T) {
	parser := NewScriptParser()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := parser.Parse(ctx, []byte("import a from './a'"), "/repo/a.js", LangJavaScript); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestScriptParser_Parse_MalformedStillExtracts(t *testing.T) {
	parser := NewScriptParser()
	content := `import ok from './ok'
function broken( {
`
	specs, err := parser.Parse(context.Background(), []byte(content), "/repo/a.js", LangJavaScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if specByRaw(specs, "./ok") == nil {
		t.Errorf("expected ./ok to survive the syntax error, got %+v", specs)
	}
}

func TestSymbolInfo_Namespace(t *testing.T) {
	tests := []struct {
		name     string
		info     SymbolInfo
		wantNS   bool
		wantSpec []string
	}{
		{"empty is namespace", SymbolInfo{}, true, []string{}},
		{"named only", SymbolInfo{Names: []string{"A", "B"}}, false, []string{"A", "B"}},
		{"mixed", SymbolInfo{Names: []string{"A", "*"}}, true, []string{"A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.HasNamespace(); got != tt.wantNS {
				t.Errorf("HasNamespace() = %v, want %v", got, tt.wantNS)
			}
			if got := tt.info.SpecificNames(); !reflect.DeepEqual(got, tt.wantSpec) {
				t.Errorf("SpecificNames() = %v, want %v", got, tt.wantSpec)
			}
		})
	}
}
