package markdown

import (
	"bufio"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

var (
	wikiLinkPattern     = regexp.MustCompile(`\[\[([^\[\]\n]+)\]\]`)
	markdownLinkPattern = regexp.MustCompile(`\[[^\]\n]*\]\(([^)\s]+)\)`)
	headingPattern      = regexp.MustCompile(`^#\s+(.+)$`)
)

// Document is what a note's content parses into.
// Err is set when the frontmatter is malformed; Links and Title are still filled from the body.
type Document struct {
	Frontmatter map[string]any
	Title       string
	Tags        []string
	Links       []string // Raw references in order of first appearance, duplicates removed
	Err         error
}

// Parse extracts frontmatter, title, tags and outbound references from note content.
// It never fails; parse problems are reported through Document.Err.
func Parse(content string) Document {
	doc := Document{Frontmatter: map[string]any{}}

	raw, body, found := splitFrontmatter(content)
	if found {
		if err := yaml.Unmarshal([]byte(raw), &doc.Frontmatter); err != nil {
			doc.Err = fmt.Errorf("invalid frontmatter: %w", err)
			doc.Frontmatter = map[string]any{}
		}
		if doc.Frontmatter == nil {
			doc.Frontmatter = map[string]any{}
		}
	}

	if title, ok := doc.Frontmatter["title"].(string); ok {
		doc.Title = strings.TrimSpace(title)
	}
	doc.Tags = tagsOf(doc.Frontmatter["tags"])

	seen := make(map[string]bool)
	addLink := func(ref string) {
		if ref == "" || seen[ref] {
			return
		}
		seen[ref] = true
		doc.Links = append(doc.Links, ref)
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inFence := false
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		// Links inside fenced code are not links
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if doc.Title == "" {
			if m := headingPattern.FindStringSubmatch(trimmed); m != nil {
				doc.Title = strings.TrimSpace(m[1])
			}
		}

		for _, m := range wikiLinkPattern.FindAllStringSubmatch(line, -1) {
			addLink(wikiTarget(m[1]))
		}
		for _, m := range markdownLinkPattern.FindAllStringSubmatch(line, -1) {
			addLink(markdownTarget(m[1]))
		}
	}
	if err := scanner.Err(); err != nil && doc.Err == nil {
		doc.Err = fmt.Errorf("failed to scan body: %w", err)
	}

	return doc
}

// splitFrontmatter returns the YAML block and the remaining body.
// An unclosed block is treated as body.
func splitFrontmatter(content string) (string, string, bool) {
	content = strings.TrimPrefix(content, "\ufeff")
	lines := strings.SplitAfter(content, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r\n") != frontmatterDelimiter {
		return "", content, false
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r\n") == frontmatterDelimiter {
			return strings.Join(lines[1:i], ""), strings.Join(lines[i+1:], ""), true
		}
	}
	return "", content, false
}

func tagsOf(v any) []string {
	switch t := v.(type) {
	case string:
		var tags []string
		for _, f := range strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ' ' }) {
			tags = append(tags, strings.TrimPrefix(f, "#"))
		}
		return tags
	case []any:
		var tags []string
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				tags = append(tags, strings.TrimPrefix(s, "#"))
			}
		}
		return tags
	}
	return nil
}

// wikiTarget strips alias and heading parts: [[target#heading|alias]] -> target
func wikiTarget(inner string) string {
	if i := strings.Index(inner, "|"); i >= 0 {
		inner = inner[:i]
	}
	if i := strings.Index(inner, "#"); i >= 0 {
		inner = inner[:i]
	}
	return strings.TrimSpace(inner)
}

// markdownTarget keeps only links to local .md files
func markdownTarget(dest string) string {
	if strings.Contains(dest, "://") || strings.HasPrefix(dest, "mailto:") || strings.HasPrefix(dest, "#") {
		return ""
	}
	if i := strings.Index(dest, "#"); i >= 0 {
		dest = dest[:i]
	}
	if unescaped, err := url.PathUnescape(dest); err == nil {
		dest = unescaped
	}
	if !strings.EqualFold(filepath.Ext(dest), ".md") {
		return ""
	}
	return dest
}

// Resolver maps references to node IDs among a set of candidate notes.
type Resolver struct {
	byPath map[string]bool
	byBase map[string][]string // lower-cased base name without .md -> sorted IDs
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		byPath: make(map[string]bool),
		byBase: make(map[string][]string),
	}
}

// Add registers id as a link target candidate.
func (r *Resolver) Add(id string) {
	if r.byPath[id] {
		return
	}
	r.byPath[id] = true

	key := baseKey(id)
	ids := r.byBase[key]
	i := sort.SearchStrings(ids, id)
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	r.byBase[key] = ids
}

// Remove unregisters id.
func (r *Resolver) Remove(id string) {
	if !r.byPath[id] {
		return
	}
	delete(r.byPath, id)

	key := baseKey(id)
	ids := r.byBase[key]
	if i := sort.SearchStrings(ids, id); i < len(ids) && ids[i] == id {
		ids = append(ids[:i], ids[i+1:]...)
	}
	if len(ids) == 0 {
		delete(r.byBase, key)
	} else {
		r.byBase[key] = ids
	}
}

// Has reports whether id was registered.
func (r *Resolver) Has(id string) bool {
	return r.byPath[id]
}

// Resolve finds the node a reference written in note `from` points to.
// Paths are tried relative to from's directory first, then by base name.
// Ambiguous base names resolve to the smallest ID so the result is deterministic.
func (r *Resolver) Resolve(from, ref string) (string, bool) {
	name := ref
	if !strings.EqualFold(filepath.Ext(name), ".md") {
		name += ".md"
	}

	if strings.ContainsRune(ref, '/') {
		candidate := name
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(filepath.Dir(from), candidate)
		}
		candidate = filepath.Clean(candidate)
		if r.byPath[candidate] {
			return candidate, true
		}
	}

	if ids := r.byBase[baseKey(name)]; len(ids) > 0 {
		return ids[0], true
	}
	return "", false
}

func baseKey(path string) string {
	base := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(base), ".md") {
		base = base[:len(base)-len(".md")]
	}
	return strings.ToLower(base)
}

// FallbackTitle derives a title from a file path when the note declares none.
func FallbackTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
