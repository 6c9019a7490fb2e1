package signin

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/readiness"
)

// MachineConfig is the configuration of a Machine.
type MachineConfig struct {
	Page        Page
	Credentials model.Credentials
	Timings     Timings
	// Sleep is used for polling and delays, by default a context aware timer.
	Sleep  readiness.SleepFunc
	Logger log.Logger
}

func (c *MachineConfig) defaults() error {
	if c.Page == nil {
		return fmt.Errorf("page is required")
	}
	if err := c.Credentials.Validate(); err != nil {
		return err
	}
	if c.Timings == (Timings{}) {
		c.Timings = DefaultTimings
	}
	if c.Timings.Poll <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Sleep == nil {
		c.Sleep = readiness.Sleep
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "signin.Machine"})
	return nil
}

// Machine signs in on a page, moving forward through the email, code and navigation steps.
type Machine struct {
	page    Page
	creds   model.Credentials
	timings Timings
	sleep   readiness.SleepFunc
	logger  log.Logger
}

// NewMachine returns a new sign-in machine.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Machine{
		page:    cfg.Page,
		creds:   cfg.Credentials,
		timings: cfg.Timings,
		sleep:   cfg.Sleep,
		logger:  cfg.Logger,
	}, nil
}

// Run executes the sign-in. A machine is meant to be run once.
func (m *Machine) Run(ctx context.Context) (*Result, error) {
	// Locate email.
	email, err := waitFor(ctx, m, "email input", m.timings.EmailTimeout, func(ctx context.Context) (Element, error) {
		for _, sel := range EmailSelectors {
			els, err := m.page.QueryVisible(ctx, sel)
			if err != nil {
				return nil, err
			}
			if len(els) > 0 {
				return els[0], nil
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Debugf("Email input located")

	// Submit email.
	if err := m.fill(ctx, email, m.creds.Email); err != nil {
		return nil, fmt.Errorf("could not fill email: %w", err)
	}
	if err := m.sleep(ctx, m.timings.EmailSettle); err != nil {
		return nil, err
	}
	clicked, err := m.clickByLabel(ctx, EmailSubmitLabels)
	if err != nil {
		return nil, fmt.Errorf("could not submit email: %w", err)
	}
	if !clicked {
		m.logger.Debugf("No email submit control found, pressing enter")
		if err := m.page.PressEnter(ctx, email); err != nil {
			return nil, fmt.Errorf("could not submit email: %w", err)
		}
	}

	// Locate code.
	codeSelector := strings.Join(CodeSelectors, ", ")
	inputs, err := waitFor(ctx, m, "code input", m.timings.CodeTimeout, func(ctx context.Context) ([]Element, error) {
		els, err := m.page.QueryVisible(ctx, codeSelector)
		if err != nil || len(els) == 0 {
			return nil, err
		}
		return els, nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Debugf("%d code inputs located", len(inputs))

	// Submit code.
	code := m.creds.Code
	if len(inputs) >= len(code) && len(inputs) <= MaxDigitInputs {
		for i, digit := range code {
			if err := m.fill(ctx, inputs[i], string(digit)); err != nil {
				return nil, fmt.Errorf("could not fill code digit %d: %w", i, err)
			}
			if err := m.sleep(ctx, m.timings.DigitDelay); err != nil {
				return nil, err
			}
		}
	} else if err := m.fill(ctx, inputs[0], code); err != nil {
		return nil, fmt.Errorf("could not fill code: %w", err)
	}
	if _, err := m.clickByLabel(ctx, CodeSubmitLabels); err != nil {
		return nil, fmt.Errorf("could not submit code: %w", err)
	}

	// Confirm navigation.
	current, err := waitFor(ctx, m, "navigation", m.timings.NavigationTimeout, func(ctx context.Context) (string, error) {
		u, err := m.page.URL(ctx)
		if err != nil {
			return "", err
		}
		if onSignIn(u) {
			return "", nil
		}
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Infof("Signed in, landed on %s", current)

	return &Result{OK: true, URL: current}, nil
}

func (m *Machine) fill(ctx context.Context, el Element, value string) error {
	if err := m.page.Focus(ctx, el); err != nil {
		return err
	}
	return m.page.SetValue(ctx, el, value)
}

func (m *Machine) clickByLabel(ctx context.Context, labels []string) (bool, error) {
	els, err := m.page.QueryVisible(ctx, ClickableSelector)
	if err != nil {
		return false, err
	}
	for _, el := range els {
		label, err := m.page.Label(ctx, el)
		if err != nil {
			return false, err
		}
		if matchesLabel(label, labels) {
			return true, m.page.Click(ctx, el)
		}
	}
	return false, nil
}

// waitFor polls find until it returns a non zero value. Page errors while polling are retried,
// the last one is reported on timeout.
func waitFor[T any](ctx context.Context, m *Machine, step string, timeout time.Duration, find func(ctx context.Context) (T, error)) (T, error) {
	var (
		found   T
		ok      bool
		lastErr error
	)

	attempts := max(1, int(timeout/m.timings.Poll))
	poller, err := readiness.NewPoller(readiness.PollerConfig{
		Policy: readiness.Policy{Attempts: attempts, Interval: m.timings.Poll},
		Sleep:  m.sleep,
		Logger: m.logger,
	})
	if err != nil {
		return found, err
	}

	poller.Await(ctx, func(ctx context.Context) bool {
		v, err := find(ctx)
		if err != nil {
			lastErr = err
			return false
		}
		found, ok = v, !isZero(v)
		return ok
	})
	if !ok {
		if ctx.Err() != nil {
			return found, fmt.Errorf("%s: %w", step, ctx.Err())
		}
		if lastErr != nil {
			return found, fmt.Errorf("%s: %w: %w", step, ErrTimeout, lastErr)
		}
		return found, fmt.Errorf("%s: %w", step, ErrTimeout)
	}

	return found, nil
}

func isZero(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []Element:
		return len(v) == 0
	}
	return false
}

func onSignIn(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.Contains(rawURL, SignInPath)
	}
	return strings.Contains(u.Path, SignInPath)
}
