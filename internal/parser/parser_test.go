package parser

import (
	"strings"
	"testing"
)

func TestParseText_FrontmatterAndBody(t *testing.T) {
	r := ParseText("---\ntitle: Hello\ntags:\n  - go\n  - shelf\n---\n# Hello\nBody text.\n")
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Hashtags) != 2 || r.Hashtags[0] != "go" || r.Hashtags[1] != "shelf" {
		t.Errorf("hashtags = %v, want [go shelf]", r.Hashtags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParseText_NoFrontmatter(t *testing.T) {
	r := ParseText("# Just a heading\nSome text.\n")
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParseText_InvalidYAMLFallback(t *testing.T) {
	content := "---\n: invalid: yaml: {{{\n---\nBody\n"
	r := ParseText(content)
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != content {
		t.Errorf("body = %q, want whole content", r.Body)
	}
}

func TestParseText_UnclosedFrontmatter(t *testing.T) {
	r := ParseText("---\ntitle: x\nno end")
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
}

func TestExtractHashtags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]any{
		"tags": []any{"alpha"},
	}
	tags := extractHashtags("Some text #beta, and #alpha again. Not #1 or # or a#b.", fm)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestExtractHashtags_Unicode(t *testing.T) {
	tags := extractHashtags("#café #work/q3 #done!", nil)
	want := []string{"café", "work/q3", "done"}
	if strings.Join(tags, ",") != strings.Join(want, ",") {
		t.Errorf("tags = %v, want %v", tags, want)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	if title := deriveTitle(fm, "# H1 Title\ntext"); title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	if title := deriveTitle(nil, "some text\n# My Heading\nmore"); title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}

func TestDeriveTitle_FirstLineFallback(t *testing.T) {
	if title := deriveTitle(nil, "\n  buy milk  \nand eggs"); title != "buy milk" {
		t.Errorf("title = %q, want %q", title, "buy milk")
	}
	long := strings.Repeat("x", MaxTitleLen+10)
	title := deriveTitle(nil, long)
	if !strings.HasSuffix(title, "…") || len([]rune(title)) != MaxTitleLen+1 {
		t.Errorf("title not truncated: %q", title)
	}
}
