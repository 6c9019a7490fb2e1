package readiness

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/slok/sbxsmoke/internal/log"
)

// Check reports if a resource is ready. A check must not block longer than the context allows.
type Check func(ctx context.Context) bool

// SleepFunc waits the duration or until the context is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy is a bounded polling policy.
type Policy struct {
	Attempts int
	Interval time.Duration
}

var (
	// AppPolicy is used for the backend and frontend of the app under test.
	AppPolicy = Policy{Attempts: 240, Interval: 2 * time.Second}
	// DebugEndpointPolicy is used for the browser remote debugging endpoint.
	DebugEndpointPolicy = Policy{Attempts: 60, Interval: time.Second}
	// SmokeDebugEndpointPolicy is used for the browser remote debugging endpoint on the bare browser flow.
	SmokeDebugEndpointPolicy = Policy{Attempts: 45, Interval: time.Second}
)

// Validate checks the policy is usable.
func (p Policy) Validate() error {
	if p.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1")
	}
	if p.Interval < 0 {
		return fmt.Errorf("interval can't be negative")
	}
	return nil
}

// Poller polls checks with a policy.
type Poller struct {
	policy Policy
	sleep  SleepFunc
	logger log.Logger
}

// PollerConfig is the configuration of a Poller.
type PollerConfig struct {
	Policy Policy
	// Sleep is used between failed attempts, by default a context aware timer.
	Sleep  SleepFunc
	Logger log.Logger
}

func (c *PollerConfig) defaults() error {
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}
	if c.Sleep == nil {
		c.Sleep = Sleep
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "readiness.Poller"})
	return nil
}

// NewPoller returns a new poller.
func NewPoller(cfg PollerConfig) (*Poller, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Poller{
		policy: cfg.Policy,
		sleep:  cfg.Sleep,
		logger: cfg.Logger,
	}, nil
}

// Await calls the check until it succeeds or the attempts are exhausted.
// Exhaustion is not an error, callers decide by asserting the resource afterwards.
func (p *Poller) Await(ctx context.Context, check Check) bool {
	for attempt := 1; attempt <= p.policy.Attempts; attempt++ {
		if check(ctx) {
			return true
		}
		if attempt == p.policy.Attempts {
			break
		}
		if err := p.sleep(ctx, p.policy.Interval); err != nil {
			p.logger.Debugf("Polling interrupted: %s", err)
			return false
		}
	}

	p.logger.Debugf("Resource not ready after %d attempts", p.policy.Attempts)
	return false
}

// Require awaits the check and then asserts it once more, failing with a diagnostic error.
func (p *Poller) Require(ctx context.Context, name string, check Check) error {
	p.Await(ctx, check)
	if !check(ctx) {
		return fmt.Errorf("%s not ready after %d attempts every %s", name, p.policy.Attempts, p.policy.Interval)
	}
	return nil
}

// Sleep is a context aware sleep.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ShellPoll renders the soft polling loop of the policy for a shell probe command,
// the probe output is discarded.
func (p Policy) ShellPoll(probe string) string {
	return fmt.Sprintf("for i in $(seq 1 %d); do if %s >/dev/null 2>&1; then break; fi; sleep %s; done",
		p.Attempts, probe, shellSeconds(p.Interval))
}

// ShellAssert renders the hard assertion of a shell probe command.
func ShellAssert(probe string) string {
	return probe + " >/dev/null"
}

// CurlProbe returns the shell probe command that checks an HTTP endpoint.
func CurlProbe(url string) string {
	return "curl -fsS " + shellquote.Join(url)
}

func shellSeconds(d time.Duration) string {
	if d%time.Second == 0 {
		return strconv.Itoa(int(d / time.Second))
	}
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
