package docpipe

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)font-size\s*:\s*0[^1-9]`),
	regexp.MustCompile(`(?i)opacity\s*:\s*0[^.]`),
	regexp.MustCompile(`(?i)position\s*:\s*absolute[^;]*-\d{4,}`),
}

func hasHiddenStyle(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "style" {
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

// extractHTML returns the visible block text of an HTML document, one
// block per paragraph. Navigation chrome and hidden elements are skipped.
func extractHTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	var blocks []string
	extractHTMLBlocks(doc, &blocks)
	if len(blocks) == 0 {
		if text := collectHTMLText(doc); text != "" {
			blocks = append(blocks, text)
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

// extractHTMLBlocks walks the DOM and collects the text of block elements.
func extractHTMLBlocks(n *html.Node, blocks *[]string) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Footer, atom.Head:
			return
		}
		if hasHiddenStyle(n) {
			return
		}

		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.P, atom.Li, atom.Tr, atom.Blockquote, atom.Pre:
			if text := collectHTMLText(n); text != "" {
				*blocks = append(*blocks, text)
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractHTMLBlocks(c, blocks)
	}
}

// collectHTMLText extracts all visible text from a node subtree.
func collectHTMLText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
			if hasHiddenStyle(n) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
