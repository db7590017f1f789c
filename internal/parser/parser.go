// Package parser derives search metadata from the content of text notes:
// optional YAML frontmatter, a title, and #hashtags.
package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// MaxTitleLen bounds a title taken from the first line of a note.
const MaxTitleLen = 80

const frontmatterDelim = "---"

// Result is the metadata of one text note.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Hashtags    []string
	Title       string
}

// ParseText extracts frontmatter, title and hashtags from note content.
// Content that does not start with a well-formed frontmatter block is all
// body.
func ParseText(content string) Result {
	fm, body := splitFrontmatter(content)
	return Result{
		Frontmatter: fm,
		Body:        body,
		Hashtags:    extractHashtags(body, fm),
		Title:       deriveTitle(fm, body),
	}
}

// splitFrontmatter separates YAML frontmatter between leading --- lines from
// the body.
func splitFrontmatter(content string) (map[string]any, string) {
	trimmed := strings.TrimLeft(content, "\n\r")
	if !strings.HasPrefix(trimmed, frontmatterDelim) {
		return nil, content
	}
	rest := trimmed[len(frontmatterDelim):]
	end := strings.Index(rest, "\n"+frontmatterDelim)
	if end < 0 {
		return nil, content
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return nil, content
	}
	body := strings.TrimLeft(rest[end+1+len(frontmatterDelim):], "\n\r")
	return fm, body
}

// extractHashtags collects frontmatter "tags" and inline #tags, first
// occurrence wins.
func extractHashtags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	if items, ok := fm["tags"].([]any); ok {
		for _, item := range items {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	for _, field := range strings.Fields(body) {
		if tag, ok := hashtag(field); ok {
			add(tag)
		}
	}
	return out
}

// hashtag accepts "#word" where word starts with a letter and continues
// with letters, digits, '_', '-' or '/'. Trailing punctuation is dropped.
func hashtag(field string) (string, bool) {
	if len(field) < 2 || field[0] != '#' {
		return "", false
	}
	word := strings.TrimRight(field[1:], ".,;:!?)")
	first, _ := utf8.DecodeRuneInString(word)
	if !unicode.IsLetter(first) {
		return "", false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '/' {
			return "", false
		}
	}
	return word, true
}

// deriveTitle prefers the frontmatter title, then the first H1, then the
// first non-empty line.
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	var first string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
		if first == "" && trimmed != "" {
			first = trimmed
		}
	}
	return truncate(first, MaxTitleLen)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
