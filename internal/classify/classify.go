// Package classify maps free-text task descriptions onto a closed set of
// task types using an ordered keyword table.
package classify

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aiteam-orchestrator/aiteam/internal/projectctx"
)

// Rule pairs a task type with the keywords that select it. A single-word
// keyword matches anywhere inside a token, so "bug" matches "debug" and
// "bugfix". A phrase matches when its tokens appear consecutively. Exact
// keywords must equal a whole token; short words like "ui" or "api" would
// otherwise hit "build" or "rapid".
type Rule struct {
	Type     TaskType
	Keywords []string
	Exact    []string
}

// DefaultRules is evaluated top to bottom and the first match wins, so the
// order is the tie-break policy: a bug report that mentions the frontend is
// still a bug fix.
var DefaultRules = []Rule{
	{
		Type: TypeBugFix,
		Keywords: []string{
			"bug", "hotfix", "error", "problem", "problème", "probleme", "crash", "broken", "regression",
		},
		Exact: []string{"fix", "fixes", "fixed", "fixing"},
	},
	{
		Type: TypeAIModels,
		Keywords: []string{
			"together", "llm", "ai model", "language model", "completion", "chatbot", "chat",
			"gpt", "claude", "llama", "mistral",
		},
	},
	{
		Type: TypeAuthIntegration,
		Keywords: []string{
			"api key", "apikey", "auth", "oauth", "token", "jwt", "login", "credential", "password",
		},
	},
	{
		Type: TypeConfiguration,
		Keywords: []string{
			"config", "setup", "set up", "environment", "dotenv", "deploy", "ci cd", "workflow", "docker",
		},
		Exact: []string{"env"},
	},
	{
		Type:     TypeTesting,
		Keywords: []string{"testing", "tests", "coverage", "e2e", "pytest", "unittest"},
		Exact:    []string{"test", "spec", "specs", "jest"},
	},
	{
		Type: TypeFrontend,
		Keywords: []string{
			"frontend", "front end", "css", "html", "component", "react", "page", "landing",
			"layout", "style", "button",
		},
		Exact: []string{"ui", "ux", "vue", "form", "forms"},
	},
	{
		Type: TypeBackend,
		Keywords: []string{
			"backend", "back end", "server", "database", "endpoint", "node", "graphql", "sql",
		},
		Exact: []string{"api", "apis", "db", "rest", "express"},
	},
	{
		Type: TypeRefactor,
		Keywords: []string{
			"refactor", "optimiz", "optimis", "clean", "clean up", "simplify", "restructure", "performance",
		},
	},
	{
		Type: TypeDocumentation,
		Keywords: []string{
			"doc", "readme", "guide", "tutorial", "comment", "changelog",
		},
	},
}

// Classifier evaluates an ordered rule table. The zero value is not usable;
// construct with New.
type Classifier struct {
	rules []compiledRule
}

type compiledRule struct {
	typ TaskType
	// words match inside a token, phrases and exact words token for token.
	words   []string
	phrases [][]string
}

// New compiles rules. A nil slice selects DefaultRules.
func New(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules
	}
	c := &Classifier{}
	for _, r := range rules {
		cr := compiledRule{typ: r.Type}
		for _, kw := range r.Keywords {
			switch toks := tokenize(lower(kw)); len(toks) {
			case 0:
			case 1:
				cr.words = append(cr.words, toks[0])
			default:
				cr.phrases = append(cr.phrases, toks)
			}
		}
		for _, kw := range r.Exact {
			if toks := tokenize(lower(kw)); len(toks) > 0 {
				cr.phrases = append(cr.phrases, toks)
			}
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

var defaultClassifier = New(nil)

// Classify classifies raw with the default rule table.
func Classify(raw string, ctx projectctx.Context) TaskDescriptor {
	return defaultClassifier.Classify(raw, ctx)
}

// Classify always returns a descriptor; it performs no I/O.
func (c *Classifier) Classify(raw string, ctx projectctx.Context) TaskDescriptor {
	typ := c.Match(raw, ctx)

	text := raw
	if strings.TrimSpace(text) == "" {
		text = PlaceholderTask
	}

	return TaskDescriptor{
		RawText:  text,
		Summary:  Summarize(text),
		TaskType: typ,
		Agent:    typ.Agent(),
		Context:  ctx,
	}
}

// Match returns the task type for raw without building a descriptor.
func (c *Classifier) Match(raw string, ctx projectctx.Context) TaskType {
	tokens := tokenize(lower(raw))
	if len(tokens) == 0 {
		return TypeGeneral
	}

	for _, r := range c.rules {
		if r.matches(tokens) {
			return r.typ
		}
	}

	if ctx.IsAIProject() {
		return TypeAIEnhancement
	}
	return TypeGeneral
}

// Summarize flattens whitespace and cuts text to the summary display width.
func Summarize(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	return runewidth.Truncate(flat, summaryWidth, "")
}

// lower folds s once per call; a Caser carries state and is not shared.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// tokenize splits s into runs of letters and digits.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (r compiledRule) matches(tokens []string) bool {
	for _, tok := range tokens {
		for _, w := range r.words {
			if strings.Contains(tok, w) {
				return true
			}
		}
	}
	for _, phrase := range r.phrases {
		if containsPhrase(tokens, phrase) {
			return true
		}
	}
	return false
}

func containsPhrase(tokens, phrase []string) bool {
	n := len(phrase)
	for i := 0; i+n <= len(tokens); i++ {
		match := true
		for j := range n {
			if tokens[i+j] != phrase[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
