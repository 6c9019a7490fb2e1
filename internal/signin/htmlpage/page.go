// Package htmlpage is a simulated browser page over a static HTML document.
//
// It doesn't run page scripts, the page behavior is provided by a click handler.
package htmlpage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/slok/sbxsmoke/internal/signin"
)

// ClickHandler is called after an element is clicked, it can change the page.
type ClickHandler func(p *Page, el *goquery.Selection) error

// Event is a dispatched DOM event.
type Event struct {
	Type   string
	Key    string
	Target *html.Node
}

// Config is the configuration of a Page.
type Config struct {
	HTML    string
	URL     string
	OnClick ClickHandler
	// Routes are the documents loaded by Goto, keyed by URL path.
	Routes map[string]string
}

func (c *Config) defaults() error {
	if c.URL == "" {
		c.URL = "http://localhost/"
	}
	if c.OnClick == nil {
		c.OnClick = func(*Page, *goquery.Selection) error { return nil }
	}
	if c.Routes == nil {
		c.Routes = map[string]string{}
	}
	return nil
}

// Page is a simulated page.
type Page struct {
	mu      sync.Mutex
	doc     *goquery.Document
	url     *url.URL
	focused *html.Node
	events  []Event
	onClick ClickHandler
	routes  map[string]string
}

var _ signin.Page = &Page{}

// New returns a new simulated page.
func New(cfg Config) (*Page, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	p := &Page{url: u, onClick: cfg.OnClick, routes: cfg.Routes}
	if err := p.SetHTML(cfg.HTML); err != nil {
		return nil, err
	}

	return p, nil
}

// SetHTML replaces the document, the URL is kept.
func (p *Page) SetHTML(doc string) error {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return fmt.Errorf("could not parse html: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc = d
	p.focused = nil
	return nil
}

// Navigate changes the page URL, relative references are resolved against the current URL.
func (p *Page) Navigate(ref string) error {
	r, err := url.Parse(ref)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = p.url.ResolveReference(r)
	return nil
}

// Goto navigates to the URL and loads its route document when there is one.
func (p *Page) Goto(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Navigate(ref); err != nil {
		return err
	}

	p.mu.Lock()
	doc, ok := p.routes[p.url.Path]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	return p.SetHTML(doc)
}

// WaitHeading checks a visible heading contains the name (case insensitive).
func (p *Page) WaitHeading(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	want := strings.ToLower(name)
	found := false
	p.Find(headingSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if Visible(s.Nodes[0]) && strings.Contains(strings.ToLower(s.Text()), want) {
			found = true
		}
		return !found
	})
	if !found {
		return fmt.Errorf("heading %q not found", name)
	}
	return nil
}

const headingSelector = "h1, h2, h3, h4, h5, h6, [role='heading']"

// Find returns the elements matching the selector.
func (p *Page) Find(selector string) *goquery.Selection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Find(selector)
}

// Events returns the dispatched events in order.
func (p *Page) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event{}, p.events...)
}

// Focused returns the focused element, if any.
func (p *Page) Focused() *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focused
}

// Value returns the value of an element.
func (p *Page) Value(el *html.Node) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, _ := goquery.NewDocumentFromNode(el).Attr("value")
	return v
}

func (p *Page) QueryVisible(ctx context.Context, selector string) ([]signin.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	els := []signin.Element{}
	for _, n := range p.Find(selector).Nodes {
		if Visible(n) {
			els = append(els, n)
		}
	}
	return els, nil
}

func (p *Page) Label(ctx context.Context, el signin.Element) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}

	if text := strings.TrimSpace(p.text(n)); text != "" {
		return text, nil
	}
	return p.Value(n), nil
}

func (p *Page) SetValue(ctx context.Context, el signin.Element, value string) error {
	n, err := node(el)
	if err != nil {
		return err
	}

	p.setAttr(n, "value", value)
	p.dispatch(Event{Type: "input", Target: n})
	p.dispatch(Event{Type: "change", Target: n})
	return nil
}

func (p *Page) Focus(ctx context.Context, el signin.Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.focused = n
	p.events = append(p.events, Event{Type: "focus", Target: n})
	return nil
}

func (p *Page) Click(ctx context.Context, el signin.Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.events = append(p.events, Event{Type: "click", Target: n})
	p.mu.Unlock()

	// The handler can change the page.
	return p.onClick(p, goquery.NewDocumentFromNode(n).Selection)
}

func (p *Page) PressEnter(ctx context.Context, el signin.Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}

	p.dispatch(Event{Type: "keydown", Key: "Enter", Target: n})
	p.dispatch(Event{Type: "keyup", Key: "Enter", Target: n})
	return nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url.String(), nil
}

func (p *Page) text(n *html.Node) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return goquery.NewDocumentFromNode(n).Text()
}

func (p *Page) setAttr(n *html.Node, name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	goquery.NewDocumentFromNode(n).SetAttr(name, value)
}

func (p *Page) dispatch(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

// Visible returns false if the element or one of its ancestors is hidden.
func Visible(n *html.Node) bool {
	if n.Type == html.ElementNode && n.Data == "input" && strings.EqualFold(attr(n, "type"), "hidden") {
		return false
	}

	for c := n; c != nil; c = c.Parent {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "head", "script", "style", "template":
			return false
		}
		if hasAttr(c, "hidden") {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(attr(c, "style")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}

	return true
}

func node(el signin.Element) (*html.Node, error) {
	n, ok := el.(*html.Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("unknown element %T", el)
	}
	return n, nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}
