package browser

import (
	"fmt"
	"strings"
)

// SelectorKind names the query language of a Selector
type SelectorKind int

const (
	KindCSS SelectorKind = iota
	KindXPath
)

// Selector is a backend-neutral element query
type Selector struct {
	Kind SelectorKind
	Expr string
}

func (s Selector) String() string {
	if s.Kind == KindXPath {
		return "xpath:" + s.Expr
	}
	return "css:" + s.Expr
}

// CSS wraps a CSS selector
func CSS(expr string) Selector {
	return Selector{Kind: KindCSS, Expr: expr}
}

// XPath wraps an XPath expression
func XPath(expr string) Selector {
	return Selector{Kind: KindXPath, Expr: expr}
}

// AttrContains matches tag elements whose attr contains value. An empty tag
// matches any element.
func AttrContains(tag, attr, value string) Selector {
	if tag == "" {
		tag = "*"
	}
	return CSS(fmt.Sprintf(`%s[%s*=%s]`, tag, attr, cssString(value)))
}

// TextContains matches elements selected by the XPath location scope that
// have a direct text node containing text. An empty scope matches any element.
func TextContains(scope, text string) Selector {
	if scope == "" {
		scope = "//*"
	}
	return XPath(fmt.Sprintf("%s[text()[contains(., %s)]]", scope, xpathLiteral(text)))
}

// StringContains matches elements selected by scope whose full text,
// descendants included, contains text
func StringContains(scope, text string) Selector {
	if scope == "" {
		scope = "//*"
	}
	return XPath(fmt.Sprintf("%s[contains(., %s)]", scope, xpathLiteral(text)))
}

func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so strings holding both quote kinds are built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	args := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			args = append(args, `"'"`)
		}
		if part != "" {
			args = append(args, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}
