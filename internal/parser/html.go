package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. The body is one page; h1-h6 become
// headings.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (Source, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	b := newPageBuilder()
	if body := findBody(doc); body != nil {
		walkHTML(b, body, 0)
	} else {
		walkHTML(b, doc, 0)
	}
	if b.empty() {
		return newMemorySource(), nil
	}
	return newMemorySource(b), nil
}

func walkHTML(b *pageBuilder, n *html.Node, depth int) {
	if n.Type == html.ElementNode {
		if level := headingLevel(n.Data); level > 0 {
			b.heading(level, textContent(n))
			return
		}
		switch n.Data {
		case "script", "style", "nav", "footer", "header", "noscript":
			return
		case "p", "blockquote", "pre", "dd", "dt", "figcaption":
			b.paragraph(textContent(n))
			return
		case "ul", "ol":
			addHTMLList(b, n, depth)
			return
		case "table":
			b.table(htmlTable(n))
			return
		}
	}
	if n.Type == html.TextNode {
		b.paragraph(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(b, c, depth)
	}
}

func addHTMLList(b *pageBuilder, list *html.Node, depth int) {
	ordered := list.Data == "ol"
	num := 1
	if ordered {
		if v, err := strconv.Atoi(attr(list, "start")); err == nil {
			num = v
		}
	}
	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		var parts []string
		var nested []*html.Node
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				nested = append(nested, c)
				continue
			}
			if t := textContent(c); t != "" {
				parts = append(parts, t)
			}
		}
		itemText := strings.Join(parts, " ")
		if ordered {
			itemText = strconv.Itoa(num) + ". " + itemText
			num++
		}
		b.listItem(itemText, depth)
		for _, c := range nested {
			addHTMLList(b, c, depth+1)
		}
	}
}

func htmlTable(table *html.Node) [][]string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, textContent(c))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
