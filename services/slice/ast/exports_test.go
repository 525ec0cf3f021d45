package ast

import (
	"context"
	"reflect"
	"testing"
)

func TestAnalyzeExports_AggregatorShapes(t *testing.T) {
	content := `import A from './a'
import { B as Bee } from './b'
import * as Utils from './utils'
export { C, D as E } from './cde'
export * from './star-one'
export * from './star-two'
export * as NS from './ns'
export { A, Bee as B, Utils }
export const F = 1, G = 2
export function H() {}
export class K {}
export default A
`
	table, err := AnalyzeExports(context.Background(), []byte(content), LangJavaScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]ExportBinding{
		"C":       {Source: "./cde", Imported: "C"},
		"E":       {Source: "./cde", Imported: "D"},
		"NS":      {Source: "./ns", Imported: NamespaceSymbol},
		"A":       {Source: "./a", Imported: DefaultSymbol},
		"B":       {Source: "./b", Imported: "B"},
		"Utils":   {Source: "./utils", Imported: NamespaceSymbol},
		"F":       {},
		"G":       {},
		"H":       {},
		"K":       {},
		"default": {Source: "./a", Imported: DefaultSymbol},
	}
	for name, w := range want {
		got, ok := table.Named[name]
		if !ok {
			t.Errorf("missing export %q", name)
			continue
		}
		if got != w {
			t.Errorf("export %q: expected %+v, got %+v", name, w, got)
		}
	}
	if !reflect.DeepEqual(table.StarSources, []string{"./star-one", "./star-two"}) {
		t.Errorf("unexpected star sources %v", table.StarSources)
	}
}

func TestAnalyzeExports_LocalDefault(t *testing.T) {
	content := `export default { name: 'widget' }`
	table, err := AnalyzeExports(context.Background(), []byte(content), LangJavaScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := table.Named[DefaultSymbol]
	if !ok || !b.IsLocal() {
		t.Errorf("expected local default export, got %+v (present=%v)", b, ok)
	}
}

func TestAnalyzeExports_TypeScript(t *testing.T) {
	content := `export interface Shape { w: number }
export type Id = string
export { Store } from './store'
`
	table, err := AnalyzeExports(context.Background(), []byte(content), LangTypeScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table.Named["Store"]; got.Source != "./store" {
		t.Errorf("expected Store from ./store, got %+v", got)
	}
	if _, ok := table.Named["Shape"]; !ok {
		t.Errorf("expected interface export Shape, got %+v", table.Named)
	}
}

func TestAnalyzeExports_InvalidUTF8(t *testing.T) {
	if _, err := AnalyzeExports(context.Background(), []byte{0xff, 0xfe}, LangJavaScript); err != ErrInvalidContent {
		t.Errorf("expected ErrInvalidContent, got %v", err)
	}
}
