// Package extract turns unstructured model output into an ordered list of
// file declarations.
//
// Two declaration grammars are recognised:
//
//	FILE: path/to/file.ext        header lines; content runs to the next header
//	```lang:path/to/file.ext      fenced blocks with a path in the info string
//	```lang                       fenced blocks without a path get a synthetic name
//
// Header blocks come first, in document order, followed by fenced blocks in
// document order. Fences are only looked for before the first header, so a
// fence inside a header block belongs to that block's content. The one
// exception is a fence wrapped around the header itself, which is stripped.
package extract

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// HeaderPrefix opens a header-grammar block.
const HeaderPrefix = "FILE:"

// DefaultFallbackPath names the single block produced for marker-less input
// when the caller does not supply one.
const DefaultFallbackPath = "generated-code.txt"

// Source records which grammar produced a block.
type Source string

const (
	SourceHeader   Source = "header"
	SourceFence    Source = "fence"
	SourceFallback Source = "fallback"
)

// Block is one extracted file.
type Block struct {
	Path     string `yaml:"path" json:"path"`
	Content  string `yaml:"content" json:"content"`
	Language string `yaml:"language,omitempty" json:"language,omitempty"`
	Source   Source `yaml:"source" json:"source"`
}

// Dropped is a declaration that failed path validation.
type Dropped struct {
	Path   string `yaml:"path" json:"path"`
	Reason string `yaml:"reason" json:"reason"`
	Source Source `yaml:"source" json:"source"`
}

// Extraction is the full result of Parse.
type Extraction struct {
	Blocks []Block `yaml:"blocks" json:"blocks"`
	// Dropped lists declarations rejected by path validation.
	Dropped []Dropped `yaml:"dropped,omitempty" json:"dropped,omitempty"`
	// Duplicates lists paths declared more than once; the last content won.
	Duplicates []string `yaml:"duplicates,omitempty" json:"duplicates,omitempty"`
	// FellBack is set when the whole input became a single block.
	FellBack bool `yaml:"fell_back" json:"fell_back"`
}

// Options configures extraction.
type Options struct {
	// DefaultPath names the fallback block. Empty means DefaultFallbackPath.
	DefaultPath string
}

// Extract returns the file blocks declared in raw. Non-blank input always
// yields at least one block.
func Extract(raw string, opts Options) []Block {
	return Parse(raw, opts).Blocks
}

// Parse is Extract with diagnostics.
func Parse(raw string, opts Options) *Extraction {
	ex := &Extraction{}

	headers, preamble := parseHeaders(raw)
	fences := parseFences(preamble)

	candidates := make([]Block, 0, len(headers)+len(fences))
	candidates = append(candidates, headers...)
	candidates = append(candidates, nameFences(fences, headers)...)

	for _, b := range candidates {
		if reason := validatePath(b.Path); reason != "" {
			ex.Dropped = append(ex.Dropped, Dropped{Path: b.Path, Reason: reason, Source: b.Source})
			slog.Debug("Dropping file declaration", "path", b.Path, "reason", reason, "source", b.Source)
			continue
		}
		ex.add(b)
	}

	if len(ex.Blocks) == 0 && strings.TrimSpace(raw) != "" {
		p := opts.DefaultPath
		if strings.TrimSpace(p) == "" {
			p = DefaultFallbackPath
		}
		ex.Blocks = []Block{{
			Path:     p,
			Content:  trimBlankLines(raw),
			Language: languageForPath(p),
			Source:   SourceFallback,
		}}
		ex.FellBack = true
	}

	return ex
}

// add appends b, or overwrites the content of an earlier block with the
// same path in place.
func (ex *Extraction) add(b Block) {
	key := pathKey(b.Path)
	for i := range ex.Blocks {
		if pathKey(ex.Blocks[i].Path) == key {
			slog.Warn("File declared more than once, keeping the last content", "path", b.Path)
			ex.Blocks[i].Content = b.Content
			ex.Blocks[i].Language = b.Language
			ex.Blocks[i].Source = b.Source
			ex.Duplicates = append(ex.Duplicates, b.Path)
			return
		}
	}
	ex.Blocks = append(ex.Blocks, b)
}

func pathKey(p string) string {
	return path.Clean(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/"))
}

// validatePath returns a non-empty reason when p cannot name a block.
func validatePath(p string) string {
	p = strings.TrimSpace(p)
	switch {
	case p == "":
		return "empty path"
	case strings.HasPrefix(p, "#"):
		return "path starts with a comment marker"
	}
	return ""
}

// parseHeaders splits raw on FILE: lines. It returns the header blocks and
// the text before the first header.
func parseHeaders(raw string) ([]Block, string) {
	lines := strings.Split(raw, "\n")

	var (
		blocks  []Block
		current *Block
		body    []string
		first   = -1
		wrapped bool
	)

	flush := func() {
		if current == nil {
			return
		}
		var kept []string
		kept, wrapped = unwrapFence(body, wrapped)
		current.Content = trimBlankLines(strings.Join(kept, "\n"))
		blocks = append(blocks, *current)
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, HeaderPrefix); ok {
			if first < 0 {
				first = i
				wrapped = endsInsideFence(lines[:i])
			}
			flush()
			p := strings.TrimSpace(rest)
			current = &Block{Path: p, Language: languageForPath(p), Source: SourceHeader}
			body = body[:0]
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	if first < 0 {
		return nil, raw
	}
	return blocks, strings.Join(lines[:first], "\n")
}

// endsInsideFence reports whether lines leave a fenced block open.
func endsInsideFence(lines []string) bool {
	open := false
	for _, line := range lines {
		switch {
		case !open && isFenceLine(line):
			open = true
		case open && isLoneFence(line):
			open = false
		}
	}
	return open
}

// unwrapFence strips the fence lines a model wraps around a FILE: header
// block. wrapped reports that the block started inside an open fence. A
// trailing opener that leaves the fences unbalanced belongs to the next
// header, which is then reported as wrapped.
func unwrapFence(body []string, wrapped bool) (kept []string, nextWrapped bool) {
	kept = body
	fences := 0
	for _, line := range kept {
		if isFenceLine(line) {
			fences++
		}
	}
	if wrapped {
		fences++
	}

	if i := lastNonBlank(kept); i >= 0 && fences%2 == 1 && isFenceLine(kept[i]) && !isLoneFence(kept[i]) {
		kept = kept[:i]
		nextWrapped = true
	}
	if i := lastNonBlank(kept); i >= 0 && wrapped && isLoneFence(kept[i]) {
		kept = kept[:i]
	}
	return kept, nextWrapped
}

func lastNonBlank(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return -1
}

func isFenceLine(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "```") || strings.HasPrefix(t, "~~~")
}

// isLoneFence matches a closing fence: only backticks or only tildes.
func isLoneFence(line string) bool {
	t := strings.TrimSpace(line)
	if len(t) < 3 {
		return false
	}
	return strings.Trim(t, "`") == "" || strings.Trim(t, "~") == ""
}

type fence struct {
	lang    string
	path    string
	named   bool // the info string had a path slot, even if it was empty
	content string
}

// parseFences collects tagged fenced code blocks from markdown src.
// Fences without an info string or without content are ignored.
func parseFences(src string) []fence {
	if !strings.Contains(src, "```") && !strings.Contains(src, "~~~") {
		return nil
	}

	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var out []fence
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		cb, ok := n.(*ast.FencedCodeBlock)
		if !ok || cb.Info == nil {
			return ast.WalkContinue, nil
		}

		lang, p, named := parseInfo(string(cb.Info.Segment.Value(source)))
		if lang == "" && !named {
			return ast.WalkSkipChildren, nil
		}

		var body strings.Builder
		lines := cb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body.Write(seg.Value(source))
		}

		content := trimBlankLines(body.String())
		if content == "" {
			return ast.WalkSkipChildren, nil
		}
		out = append(out, fence{lang: lang, path: p, named: named, content: content})
		return ast.WalkSkipChildren, nil
	})
	return out
}

// parseInfo splits a fence info string into a language tag and an optional
// path. Accepted forms: "lang:path", "lang path", "path.ext", "lang".
// named reports whether the string declared a path at all.
func parseInfo(info string) (lang, p string, named bool) {
	info = strings.TrimSpace(info)
	if info == "" {
		return "", "", false
	}

	if l, rest, ok := strings.Cut(info, ":"); ok && l != "" && !strings.ContainsAny(l, " \t") {
		return l, strings.TrimSpace(rest), true
	}

	fields := strings.Fields(info)
	if len(fields) >= 2 && looksLikePath(fields[1]) {
		return fields[0], fields[1], true
	}
	if looksLikePath(fields[0]) {
		return languageForPath(fields[0]), fields[0], true
	}
	return fields[0], "", false
}

// nameFences turns fences into blocks. Fences without a path are named
// generated_<lang>_<n>.<ext>; n counts per language from 1 and skips any
// name already claimed by an explicit path.
func nameFences(fences []fence, headers []Block) []Block {
	claimed := map[string]bool{}
	for _, h := range headers {
		claimed[pathKey(h.Path)] = true
	}
	for _, f := range fences {
		if f.named {
			claimed[pathKey(f.path)] = true
		}
	}

	ordinals := map[string]int{}
	blocks := make([]Block, 0, len(fences))
	for _, f := range fences {
		if f.named {
			blocks = append(blocks, Block{
				Path:     f.path,
				Content:  f.content,
				Language: canonicalOrEmpty(f.lang),
				Source:   SourceFence,
			})
			continue
		}

		l := lookupLanguage(f.lang)
		var name string
		for {
			ordinals[l.name]++
			name = fmt.Sprintf("generated_%s_%d.%s", l.name, ordinals[l.name], l.ext)
			if !claimed[name] {
				break
			}
		}
		claimed[name] = true

		blocks = append(blocks, Block{
			Path:     name,
			Content:  f.content,
			Language: l.name,
			Source:   SourceFence,
		})
	}
	return blocks
}

func canonicalOrEmpty(tag string) string {
	if tag == "" {
		return ""
	}
	return lookupLanguage(tag).name
}

// trimBlankLines drops leading and trailing whitespace-only lines and the
// trailing line break. Everything in between is kept byte for byte.
func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if start >= end {
		return ""
	}

	out := strings.Join(lines[start:end], "\n")
	return strings.TrimSuffix(out, "\r")
}
