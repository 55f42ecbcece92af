package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// breaking elements start a new line when a block is flattened to text
var breaking = map[string]bool{
	"div": true, "p": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"a": true, "button": true, "tr": true, "td": true, "section": true,
	"article": true, "header": true, "footer": true,
}

// collapse trims s and folds every whitespace run into one space
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// textOf returns the collapsed text of the first element in sel
func textOf(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return collapse(sel.First().Text())
}

// linesOf flattens a selection to non-empty, collapsed lines, breaking at
// block-level elements.
func linesOf(sel *goquery.Selection) []string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		brk := n.Type == html.ElementNode && breaking[n.Data]
		if brk {
			sb.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if brk {
			sb.WriteByte('\n')
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}

	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if line = collapse(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// fullText is the block text, one line per block-level element
func fullText(sel *goquery.Selection) string {
	return strings.Join(linesOf(sel), "\n")
}
