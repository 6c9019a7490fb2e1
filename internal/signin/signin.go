// Package signin automates the email and one-time code sign-in of the app under test.
//
// The flow has a single definition (selectors, labels and timings) with two realizations,
// a Go Machine that drives a Page and a JavaScript program evaluated inside the browser.
package signin

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/slok/sbxsmoke/internal/conventions"
)

var (
	// EmailSelectors locate the email field, in priority order.
	EmailSelectors = []string{
		`input[type="email"]`,
		`input[name="identifier"]`,
		`input[name*="identifier"]`,
		`input[autocomplete="email"]`,
	}
	// CodeSelectors locate the one-time code fields, matched together in document order.
	CodeSelectors = []string{
		`input[autocomplete="one-time-code"]`,
		`input[inputmode="numeric"]`,
		`input[name*="code"]`,
	}
	// ClickableSelector locates the elements that can submit a step.
	ClickableSelector = `button, [role='button'], input[type='submit']`
	// EmailSubmitLabels are the labels of the email step submit control.
	EmailSubmitLabels = []string{"Continue", "Sign in", "Sign In", "Next"}
	// CodeSubmitLabels are the labels of the code step submit control.
	CodeSubmitLabels = []string{"Continue", "Verify", "Sign in", "Sign In"}
)

const (
	// SignInPath is the path the page leaves once signed in.
	SignInPath = conventions.SignInPath
	// MaxDigitInputs is the maximum number of code fields filled one digit per field.
	MaxDigitInputs = 8
)

// ErrTimeout is returned when a step element or the navigation doesn't happen in time.
var ErrTimeout = errors.New("timed out waiting for sign-in step")

// Timings are the waits of the flow.
type Timings struct {
	Poll              time.Duration
	EmailTimeout      time.Duration
	CodeTimeout       time.Duration
	NavigationTimeout time.Duration
	EmailSettle       time.Duration
	DigitDelay        time.Duration
}

// DefaultTimings are the timings used by every flow.
var DefaultTimings = Timings{
	Poll:              250 * time.Millisecond,
	EmailTimeout:      20 * time.Second,
	CodeTimeout:       25 * time.Second,
	NavigationTimeout: 30 * time.Second,
	EmailSettle:       200 * time.Millisecond,
	DigitDelay:        60 * time.Millisecond,
}

// Result is the outcome of a completed sign-in.
type Result struct {
	OK  bool   `json:"ok"`
	URL string `json:"url"`
}

// Element is a page element handle, opaque to the machine.
type Element any

// Page is what the machine needs from a browser page.
type Page interface {
	// QueryVisible returns the visible elements matching a selector group in document order.
	QueryVisible(ctx context.Context, selector string) ([]Element, error)
	// Label returns the trimmed text of an element, or its value attribute when it has no text.
	Label(ctx context.Context, el Element) (string, error)
	// SetValue sets an input value the way a user would, notifying input and change listeners.
	SetValue(ctx context.Context, el Element, value string) error
	Focus(ctx context.Context, el Element) error
	Click(ctx context.Context, el Element) error
	// PressEnter sends an Enter keydown and keyup to the element.
	PressEnter(ctx context.Context, el Element) error
	// URL returns the current page URL.
	URL(ctx context.Context) (string, error)
}

// matchesLabel returns true if the label contains any of the wanted labels, ignoring case.
func matchesLabel(label string, wanted []string) bool {
	label = strings.ToLower(label)
	for _, w := range wanted {
		if strings.Contains(label, strings.ToLower(strings.TrimSpace(w))) {
			return true
		}
	}
	return false
}
