package extract

import (
	"path"
	"strings"
)

type language struct {
	name string // canonical name used in synthetic file names
	ext  string
}

// languages maps fence tags onto a canonical name and file extension.
var languages = map[string]language{
	"javascript": {"javascript", "js"},
	"js":         {"javascript", "js"},
	"jsx":        {"jsx", "jsx"},
	"typescript": {"typescript", "ts"},
	"ts":         {"typescript", "ts"},
	"tsx":        {"tsx", "tsx"},
	"python":     {"python", "py"},
	"py":         {"python", "py"},
	"css":        {"css", "css"},
	"scss":       {"scss", "scss"},
	"html":       {"html", "html"},
	"json":       {"json", "json"},
	"yaml":       {"yaml", "yaml"},
	"yml":        {"yaml", "yaml"},
	"markdown":   {"markdown", "md"},
	"md":         {"markdown", "md"},
	"go":         {"go", "go"},
	"golang":     {"go", "go"},
	"rust":       {"rust", "rs"},
	"rs":         {"rust", "rs"},
	"java":       {"java", "java"},
	"ruby":       {"ruby", "rb"},
	"rb":         {"ruby", "rb"},
	"php":        {"php", "php"},
	"c":          {"c", "c"},
	"cpp":        {"cpp", "cpp"},
	"c++":        {"cpp", "cpp"},
	"vue":        {"vue", "vue"},
	"bash":       {"bash", "sh"},
	"sh":         {"bash", "sh"},
	"shell":      {"bash", "sh"},
	"sql":        {"sql", "sql"},
	"toml":       {"toml", "toml"},
	"xml":        {"xml", "xml"},
	"text":       {"text", "txt"},
	"txt":        {"text", "txt"},
	"plaintext":  {"text", "txt"},
}

// lookupLanguage resolves a fence tag. Unknown tags keep a sanitised form of
// their own name and get the txt extension.
func lookupLanguage(tag string) language {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if l, ok := languages[tag]; ok {
		return l
	}

	var b strings.Builder
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = "text"
	}
	return language{name: name, ext: "txt"}
}

// ExtensionFor returns the file extension for a fence tag.
func ExtensionFor(tag string) string {
	return lookupLanguage(tag).ext
}

// languageForPath guesses the fence tag from a file extension.
func languageForPath(p string) string {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		return ""
	}
	for tag, l := range languages {
		if l.ext == ext && tag == l.name {
			return l.name
		}
	}
	if l, ok := languages[ext]; ok {
		return l.name
	}
	return ""
}

// looksLikePath reports whether a bare fence tag is a file name rather than
// a language, e.g. "index.html" or "src/app.js".
func looksLikePath(tag string) bool {
	if strings.ContainsAny(tag, " \t{}\"'=<>|*?") {
		return false
	}
	if strings.Contains(tag, "/") {
		return true
	}
	ext := path.Ext(tag)
	if len(ext) < 2 || ext == tag {
		return false
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
