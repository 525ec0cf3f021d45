package ast

import (
	"context"
	"testing"
)

func TestFindRouteComponentImports(t *testing.T) {
	content := `export default [
  { path: '/', component: () => import('./views/Home.vue') },
  { path: '/about', component: () => import(/* webpackChunkName: "about" */ "./views/About.vue") },
  { path: '/legacy', component: function () { return import('./views/Legacy.vue') } },
  { path: '/eager', component: Eager },
  { path: '/other', loader: () => import('./views/NotAComponent.vue') },
]
`
	spans, err := FindRouteComponentImports(context.Background(), []byte(content), LangJavaScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"./views/Home.vue", "./views/About.vue", "./views/Legacy.vue"}
	if len(spans) != len(want) {
		t.Fatalf("expected %d spans, got %+v", len(want), spans)
	}
	for i, w := range want {
		if spans[i].Value != w {
			t.Errorf("span %d: expected %q, got %q", i, w, spans[i].Value)
		}
		text := content[spans[i].Start:spans[i].End]
		if text[0] != '\'' && text[0] != '"' {
			t.Errorf("span %d should include the opening quote, got %q", i, text)
		}
		if text[1:len(text)-1] != w {
			t.Errorf("span %d covers %q", i, text)
		}
	}
}
