package diff

import (
	"strings"
	"testing"
)

func TestRenderAddition(t *testing.T) {
	out := Render("line1\nline2\n", "line1\nline2\nline3\n")
	if !strings.Contains(out, "+ line3") {
		t.Errorf("missing addition in diff:\n%s", out)
	}
	if strings.Contains(out, "- ") {
		t.Errorf("unexpected deletion in diff:\n%s", out)
	}
}

func TestRenderRemoval(t *testing.T) {
	out := Render("keep\ndrop\n", "keep\n")
	if !strings.Contains(out, "- drop") {
		t.Errorf("missing deletion in diff:\n%s", out)
	}
}

func TestRenderNewFile(t *testing.T) {
	out := Render("", "a\nb\n")
	if !strings.Contains(out, "+ a") || !strings.Contains(out, "+ b") {
		t.Errorf("new file should render all lines as additions:\n%s", out)
	}
}

func TestRenderElidesContext(t *testing.T) {
	out := Render("same\nold\n", "same\nnew\n")
	if strings.Contains(out, "same") {
		t.Errorf("unchanged lines should be elided:\n%s", out)
	}
}

func TestRenderTruncatesLongDiffs(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("line\n")
	}
	out := Render("", b.String())
	if !strings.Contains(out, "truncated") {
		t.Error("long diff should be truncated")
	}
}
