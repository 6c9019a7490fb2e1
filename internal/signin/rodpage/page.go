// Package rodpage drives a live browser page over the remote debugging protocol.
package rodpage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/signin"
)

const (
	setValueJS = `function (value) {
  const descriptor = Object.getOwnPropertyDescriptor(HTMLInputElement.prototype, "value");
  if (descriptor && descriptor.set) {
    descriptor.set.call(this, value);
  } else {
    this.value = value;
  }
  this.dispatchEvent(new Event("input", { bubbles: true }));
  this.dispatchEvent(new Event("change", { bubbles: true }));
}`
	pressEnterJS = `function () {
  this.dispatchEvent(new KeyboardEvent("keydown", { key: "Enter", bubbles: true }));
  this.dispatchEvent(new KeyboardEvent("keyup", { key: "Enter", bubbles: true }));
}`
)

// HeadingTimeout bounds the wait for a page heading.
const HeadingTimeout = 20 * time.Second

// Config is the configuration of a Page.
type Config struct {
	// CDPURL is the browser debug endpoint (e.g. http://127.0.0.1:9222).
	CDPURL string
	// URL is opened in a new tab when set, otherwise the first tab is used.
	URL    string
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.CDPURL == "" {
		return fmt.Errorf("cdp url is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "rodpage.Page"})
	return nil
}

// Page is a live browser page.
type Page struct {
	page    *rod.Page
	created bool
	logger  log.Logger
}

var _ signin.Page = &Page{}

// Connect attaches to a running browser and returns its page.
func Connect(ctx context.Context, cfg Config) (*Page, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	wsURL, err := launcher.ResolveURL(cfg.CDPURL)
	if err != nil {
		return nil, fmt.Errorf("could not resolve browser debug endpoint: %w", err)
	}
	// An empty control URL would make rod launch a local browser.
	if wsURL == "" {
		return nil, fmt.Errorf("browser debug endpoint %s has no websocket url", cfg.CDPURL)
	}

	browser := rod.New().ControlURL(wsURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("could not connect to browser: %w", err)
	}

	page, err := openPage(browser, cfg.URL)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Debugf("Attached to browser at %s", cfg.CDPURL)

	return &Page{page: page, created: cfg.URL != "", logger: cfg.Logger}, nil
}

func openPage(browser *rod.Browser, url string) (*rod.Page, error) {
	if url != "" {
		page, err := browser.Page(proto.TargetCreateTarget{URL: url})
		if err != nil {
			return nil, fmt.Errorf("could not open %s: %w", url, err)
		}
		if err := page.WaitLoad(); err != nil {
			return nil, fmt.Errorf("could not load %s: %w", url, err)
		}
		return page, nil
	}

	pages, err := browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("could not list pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("browser has no pages")
	}
	return pages.First(), nil
}

// Close closes the tab if it was opened by Connect, the browser is left running.
func (p *Page) Close() error {
	if !p.created {
		return nil
	}
	return p.page.Close()
}

func (p *Page) QueryVisible(ctx context.Context, selector string) ([]signin.Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("could not query %q: %w", selector, err)
	}

	visible := []signin.Element{}
	for _, el := range els {
		ok, err := el.Visible()
		if err != nil {
			// Detached while checking.
			p.logger.Debugf("Could not check element visibility: %s", err)
			continue
		}
		if ok {
			visible = append(visible, el)
		}
	}
	return visible, nil
}

func (p *Page) Label(ctx context.Context, e signin.Element) (string, error) {
	el, err := element(ctx, e)
	if err != nil {
		return "", err
	}

	text, err := el.Text()
	if err != nil {
		return "", err
	}
	if text = strings.TrimSpace(text); text != "" {
		return text, nil
	}

	value, err := el.Attribute("value")
	if err != nil || value == nil {
		return "", err
	}
	return *value, nil
}

func (p *Page) SetValue(ctx context.Context, e signin.Element, value string) error {
	el, err := element(ctx, e)
	if err != nil {
		return err
	}
	_, err = el.Eval(setValueJS, value)
	return err
}

func (p *Page) Focus(ctx context.Context, e signin.Element) error {
	el, err := element(ctx, e)
	if err != nil {
		return err
	}
	return el.Focus()
}

func (p *Page) Click(ctx context.Context, e signin.Element) error {
	el, err := element(ctx, e)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *Page) PressEnter(ctx context.Context, e signin.Element) error {
	el, err := element(ctx, e)
	if err != nil {
		return err
	}
	_, err = el.Eval(pressEnterJS)
	return err
}

func (p *Page) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("could not get page info: %w", err)
	}
	return info.URL, nil
}

// Goto navigates the page and waits for it to load.
func (p *Page) Goto(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("could not open %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("could not load %s: %w", url, err)
	}
	return nil
}

// WaitHeading waits for a heading containing the name (case insensitive).
func (p *Page) WaitHeading(ctx context.Context, name string) error {
	rx := "/" + regexp.QuoteMeta(name) + "/i"
	_, err := p.page.Context(ctx).Timeout(HeadingTimeout).ElementR("h1, h2, h3, h4, h5, h6, [role='heading']", rx)
	if err != nil {
		return fmt.Errorf("heading %q not found: %w", name, err)
	}
	return nil
}

// Screenshot takes a full page PNG screenshot.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := p.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("could not take screenshot: %w", err)
	}
	return data, nil
}

func element(ctx context.Context, e signin.Element) (*rod.Element, error) {
	el, ok := e.(*rod.Element)
	if !ok || el == nil {
		return nil, fmt.Errorf("unknown element %T", e)
	}
	return el.Context(ctx), nil
}
