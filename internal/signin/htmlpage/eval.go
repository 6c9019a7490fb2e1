package htmlpage

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"

	"github.com/dop251/goja"
	"golang.org/x/net/html"

	"github.com/slok/sbxsmoke/internal/signin"
)

//go:embed dom.js
var domShim string

// Evaluate runs an in-page sign-in program against the page and returns its outcome.
//
// Timers run on a virtual clock, a sleep advances the clock and resumes immediately.
func (p *Page) Evaluate(ctx context.Context, program string) (*signin.Result, error) {
	vm := goja.New()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("context cancelled")
		case <-stop:
		}
	}()

	b := &bridge{page: p, vm: vm, ids: map[*html.Node]int{}}
	shim, err := vm.RunString(domShim)
	if err != nil {
		return nil, fmt.Errorf("could not load dom: %w", err)
	}
	setup, ok := goja.AssertFunction(shim)
	if !ok {
		return nil, fmt.Errorf("invalid dom shim")
	}
	if _, err := setup(goja.Undefined(), b.domObject(), b.clockObject()); err != nil {
		return nil, fmt.Errorf("could not load dom: %w", err)
	}

	v, err := vm.RunString(program)
	if err != nil {
		return nil, fmt.Errorf("sign-in program failed: %w", err)
	}

	promise, ok := v.Export().(*goja.Promise)
	if !ok {
		return nil, fmt.Errorf("sign-in program must return a promise")
	}
	switch promise.State() {
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("sign-in program failed: %s", promise.Result().String())
	case goja.PromiseStatePending:
		return nil, fmt.Errorf("sign-in program did not settle")
	}

	out, ok := promise.Result().Export().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected sign-in program result %v", promise.Result())
	}
	res := &signin.Result{}
	res.OK, _ = out["ok"].(bool)
	res.URL, _ = out["url"].(string)

	return res, nil
}

type bridge struct {
	page  *Page
	vm    *goja.Runtime
	nodes []*html.Node
	ids   map[*html.Node]int
	now   int64
}

func (b *bridge) id(n *html.Node) int {
	if id, ok := b.ids[n]; ok {
		return id
	}
	b.nodes = append(b.nodes, n)
	b.ids[n] = len(b.nodes) - 1
	return b.ids[n]
}

func (b *bridge) node(id int) (*html.Node, error) {
	if id < 0 || id >= len(b.nodes) {
		return nil, fmt.Errorf("unknown element %d", id)
	}
	return b.nodes[id], nil
}

func (b *bridge) domObject() *goja.Object {
	ctx := context.Background()
	obj := b.vm.NewObject()

	_ = obj.Set("query", func(selector string) *goja.Object {
		items := []any{}
		for _, n := range b.page.Find(selector).Nodes {
			items = append(items, b.id(n))
		}
		return b.vm.NewArray(items...)
	})
	_ = obj.Set("tag", func(id int) (string, error) {
		n, err := b.node(id)
		if err != nil {
			return "", err
		}
		return n.Data, nil
	})
	_ = obj.Set("visible", func(id int) (bool, error) {
		n, err := b.node(id)
		if err != nil {
			return false, err
		}
		return Visible(n), nil
	})
	_ = obj.Set("text", func(id int) (string, error) {
		n, err := b.node(id)
		if err != nil {
			return "", err
		}
		return b.page.text(n), nil
	})
	_ = obj.Set("attr", func(id int, name string) (goja.Value, error) {
		n, err := b.node(id)
		if err != nil {
			return nil, err
		}
		if !hasAttr(n, name) {
			return goja.Null(), nil
		}
		return b.vm.ToValue(attr(n, name)), nil
	})
	_ = obj.Set("getValue", func(id int) (string, error) {
		n, err := b.node(id)
		if err != nil {
			return "", err
		}
		return b.page.Value(n), nil
	})
	_ = obj.Set("setValue", func(id int, v string) error {
		n, err := b.node(id)
		if err != nil {
			return err
		}
		b.page.setAttr(n, "value", v)
		return nil
	})
	_ = obj.Set("focus", func(id int) error {
		n, err := b.node(id)
		if err != nil {
			return err
		}
		return b.page.Focus(ctx, n)
	})
	_ = obj.Set("click", func(id int) error {
		n, err := b.node(id)
		if err != nil {
			return err
		}
		return b.page.Click(ctx, n)
	})
	_ = obj.Set("event", func(id int, typ, key string) error {
		n, err := b.node(id)
		if err != nil {
			return err
		}
		b.page.dispatch(Event{Type: typ, Key: key, Target: n})
		return nil
	})
	_ = obj.Set("url", func() (string, error) { return b.page.URL(ctx) })
	_ = obj.Set("path", func() (string, error) {
		raw, err := b.page.URL(ctx)
		if err != nil {
			return "", err
		}
		u, err := url.Parse(raw)
		if err != nil {
			return "", err
		}
		return u.Path, nil
	})

	return obj
}

func (b *bridge) clockObject() *goja.Object {
	obj := b.vm.NewObject()
	_ = obj.Set("now", func() int64 { return b.now })
	_ = obj.Set("advance", func(ms int64) { b.now += ms })
	return obj
}
