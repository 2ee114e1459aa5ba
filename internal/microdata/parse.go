// Package microdata scans HTML documents for W3C microdata items.
package microdata

import (
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"

	"github.com/ppiankov/kinscan/internal/model"
)

// cycleValue replaces an item that is reached again through itemref while
// it is still being built.
const cycleValue = "ERROR"

// Page is the result of scanning one document.
type Page struct {
	Title             string
	Items             []*model.Item
	HasHistoricalData bool
}

// Scan parses r once and returns both its items and the historical data flag.
func Scan(r io.Reader, baseURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}
	return &Page{
		Title:             strings.Join(strings.Fields(doc.Find("title").First().Text()), " "),
		Items:             ParseDocument(doc, baseURL),
		HasHistoricalData: hasHistoricalData(doc),
	}, nil
}

// Parse returns the top-level microdata items of the document in r.
// Relative URL values are resolved against baseURL and any <base href>.
func Parse(r io.Reader, baseURL string) ([]*model.Item, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}
	return ParseDocument(doc, baseURL), nil
}

// ParseDocument is Parse for an already parsed document.
func ParseDocument(doc *goquery.Document, baseURL string) []*model.Item {
	p := newParser(doc, baseURL)

	items := []*model.Item{}
	doc.Find("[itemscope]").Not("[itemprop]").Each(func(_ int, s *goquery.Selection) {
		items = append(items, p.item(s.Get(0), make(map[*html.Node]bool)))
	})
	return items
}

type parser struct {
	doc   *goquery.Document
	base  *url.URL
	ids   map[string]*html.Node
	order map[*html.Node]int
}

func newParser(doc *goquery.Document, baseURL string) *parser {
	p := &parser{
		doc:   doc,
		ids:   make(map[string]*html.Node),
		order: make(map[*html.Node]int),
	}

	p.base, _ = url.Parse(strings.TrimSpace(baseURL))
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if p.base != nil {
				ref = p.base.ResolveReference(ref)
			}
			p.base = ref
		}
	}

	var index func(*html.Node)
	index = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.order[n] = len(p.order)
			if id := attr(n, "id"); id != "" {
				if _, seen := p.ids[id]; !seen {
					p.ids[id] = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			index(c)
		}
	}
	for _, root := range doc.Nodes {
		index(root)
	}
	return p
}

// item builds the Item rooted at n. stack holds the items under
// construction on the current path.
func (p *parser) item(n *html.Node, stack map[*html.Node]bool) *model.Item {
	stack[n] = true
	defer delete(stack, n)

	it := model.NewItem(strings.Fields(attr(n, "itemtype"))...)
	if id := strings.TrimSpace(attr(n, "itemid")); id != "" {
		it.ID = p.resolve(id)
	}

	for _, prop := range p.properties(n) {
		value := p.value(prop, stack)
		for _, name := range strings.Fields(attr(prop, "itemprop")) {
			it.Add(name, value)
		}
	}
	return it
}

// properties collects the property elements of the item rooted at root in
// tree order: its descendants outside nested scopes, plus the elements named
// by itemref and their descendants.
func (p *parser) properties(root *html.Node) []*html.Node {
	var pending []*html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			pending = append(pending, c)
		}
	}
	for _, ref := range strings.Fields(attr(root, "itemref")) {
		if el, ok := p.ids[ref]; ok {
			pending = append(pending, el)
		}
	}

	seen := map[*html.Node]bool{root: true}
	var props []*html.Node
	for len(pending) > 0 {
		el := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if seen[el] {
			continue
		}
		seen[el] = true

		if !hasAttr(el, "itemscope") {
			for c := el.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode {
					pending = append(pending, c)
				}
			}
		}
		if len(strings.Fields(attr(el, "itemprop"))) > 0 {
			props = append(props, el)
		}
	}

	sort.SliceStable(props, func(i, j int) bool {
		return p.order[props[i]] < p.order[props[j]]
	})
	return props
}

func (p *parser) value(el *html.Node, stack map[*html.Node]bool) model.Value {
	if hasAttr(el, "itemscope") {
		if stack[el] {
			return model.TextValue(cycleValue)
		}
		return model.ItemValue(p.item(el, stack))
	}

	switch el.Data {
	case "meta":
		return model.TextValue(attr(el, "content"))
	case "audio", "embed", "iframe", "img", "source", "track", "video":
		return model.TextValue(p.resolve(attr(el, "src")))
	case "a", "area", "link":
		return model.TextValue(p.resolve(attr(el, "href")))
	case "object":
		return model.TextValue(p.resolve(attr(el, "data")))
	case "data", "meter":
		return model.TextValue(attr(el, "value"))
	case "time":
		if hasAttr(el, "datetime") {
			return model.TextValue(attr(el, "datetime"))
		}
	}
	return model.TextValue(p.doc.FindNodes(el).Text())
}

// resolve makes a URL attribute absolute. Values that cannot be parsed are
// returned as written.
func (p *parser) resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || p.base == nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return p.base.ResolveReference(ref).String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
