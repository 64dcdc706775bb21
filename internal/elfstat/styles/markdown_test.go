package styles

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	md := "# elfstat\n\n| mnemonic | count |\n|---|---|\n| `push` | 2 |\n"

	out := Render(md, 80)
	if strings.TrimSpace(out) == "" {
		t.Fatal("Render returned empty output")
	}
	for _, want := range []string{"elfstat", "push"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q: %q", want, out)
		}
	}
}

func TestGetMarkdownRenderer(t *testing.T) {
	if _, err := GetMarkdownRenderer(60); err != nil {
		t.Fatalf("GetMarkdownRenderer: %v", err)
	}
}
