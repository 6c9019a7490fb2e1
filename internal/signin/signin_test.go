package signin_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/signin"
	"github.com/slok/sbxsmoke/internal/signin/htmlpage"
)

const emailPage = `<html><body><form>
<input type="hidden" name="identifier_token" value="tok">
<input type="email" name="email" style="display: none">
<input type="text" name="identifier">
<button type="button">Back</button>
<button type="submit">Continue</button>
</form></body></html>`

const emailPageWithoutSubmit = `<html><body><form>
<input type="email" name="email">
</form></body></html>`

const sixDigitsPage = `<html><body><form>
<input inputmode="numeric" maxlength="1">
<input inputmode="numeric" maxlength="1">
<input inputmode="numeric" maxlength="1">
<input inputmode="numeric" maxlength="1">
<input inputmode="numeric" maxlength="1">
<input inputmode="numeric" maxlength="1">
<div role="button">Verify</div>
</form></body></html>`

const singleCodePage = `<html><body><form>
<input autocomplete="one-time-code" name="code">
<input type="submit" value="Sign in">
</form></body></html>`

const threeCodePage = `<html><body><form>
<input name="code-1">
<input name="code-2">
<input name="code-3">
<button>Verify</button>
</form></body></html>`

const codeInputs = `input:not([type="submit"])`

// app simulates the sign-in app: the email step shows the code step and a valid code
// leaves the sign-in page.
func app(codePage, validCode string) htmlpage.ClickHandler {
	return func(p *htmlpage.Page, el *goquery.Selection) error {
		if p.Find(`input[name="identifier"], input[type="email"]`).Length() > 0 {
			return p.SetHTML(codePage)
		}
		if submittedCode(p) == validCode {
			return p.Navigate("/home")
		}
		return nil
	}
}

func submittedCode(p *htmlpage.Page) string {
	code := ""
	p.Find(codeInputs).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("value")
		code += v
	})
	return code
}

func codeValues(p *htmlpage.Page) []string {
	values := []string{}
	p.Find(codeInputs).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("value")
		values = append(values, v)
	})
	return values
}

type runner func(ctx context.Context, p *htmlpage.Page, creds model.Credentials) (*signin.Result, error)

var runners = map[string]runner{
	"machine": func(ctx context.Context, p *htmlpage.Page, creds model.Credentials) (*signin.Result, error) {
		m, err := signin.NewMachine(signin.MachineConfig{
			Page:        p,
			Credentials: creds,
			Sleep:       func(context.Context, time.Duration) error { return nil },
		})
		if err != nil {
			return nil, err
		}
		return m.Run(ctx)
	},
	"script": func(ctx context.Context, p *htmlpage.Page, creds model.Credentials) (*signin.Result, error) {
		js, err := signin.Script(creds, signin.DefaultTimings)
		if err != nil {
			return nil, err
		}
		return p.Evaluate(ctx, js)
	},
}

func TestSignIn(t *testing.T) {
	tests := map[string]struct {
		emailPage string
		codePage  string
		validCode string
		creds     model.Credentials
		expResult *signin.Result
		expValues []string
		expEnter  bool
		expErr    string
	}{
		"Six code inputs should get one digit each in order.": {
			emailPage: emailPage,
			codePage:  sixDigitsPage,
			validCode: "424242",
			creds:     model.NewCredentials("test@example.com", ""),
			expResult: &signin.Result{OK: true, URL: "http://localhost:3000/home"},
			expValues: []string{"4", "2", "4", "2", "4", "2"},
		},
		"A single code input should get the whole code.": {
			emailPage: emailPage,
			codePage:  singleCodePage,
			validCode: "424242",
			creds:     model.NewCredentials("test@example.com", "424242"),
			expResult: &signin.Result{OK: true, URL: "http://localhost:3000/home"},
			expValues: []string{"424242"},
		},
		"Fewer code inputs than digits should get the whole code in the first input.": {
			emailPage: emailPage,
			codePage:  threeCodePage,
			validCode: "123456",
			creds:     model.NewCredentials("test@example.com", "123456"),
			expResult: &signin.Result{OK: true, URL: "http://localhost:3000/home"},
			expValues: []string{"123456", "", ""},
		},
		"An email step without submit control should press enter and time out when nothing happens.": {
			emailPage: emailPageWithoutSubmit,
			codePage:  sixDigitsPage,
			validCode: "424242",
			creds:     model.NewCredentials("test@example.com", ""),
			expEnter:  true,
			expErr:    "code input",
		},
		"A rejected code should time out waiting for the navigation.": {
			emailPage: emailPage,
			codePage:  sixDigitsPage,
			validCode: "000000",
			creds:     model.NewCredentials("test@example.com", ""),
			expValues: []string{"4", "2", "4", "2", "4", "2"},
			expErr:    "navigation",
		},
	}

	for name, test := range tests {
		for runnerName, run := range runners {
			t.Run(runnerName+": "+name, func(t *testing.T) {
				assert := assert.New(t)
				require := require.New(t)

				p, err := htmlpage.New(htmlpage.Config{
					HTML:    test.emailPage,
					URL:     "http://localhost:3000/sign-in",
					OnClick: app(test.codePage, test.validCode),
				})
				require.NoError(err)

				res, err := run(context.Background(), p, test.creds)

				if test.expErr != "" {
					require.Error(err)
					assert.Contains(strings.ToLower(err.Error()), "timed out waiting for sign-in step")
					assert.Contains(err.Error(), test.expErr)
				} else {
					require.NoError(err)
					assert.Equal(test.expResult, res)
				}

				if test.expValues != nil {
					assert.Equal(test.expValues, codeValues(p))
				}

				enter := false
				for _, ev := range p.Events() {
					if ev.Type == "keydown" && ev.Key == "Enter" {
						enter = true
					}
				}
				assert.Equal(test.expEnter, enter)
			})
		}
	}
}

func TestMachineEmailSelection(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	p, err := htmlpage.New(htmlpage.Config{
		HTML:    emailPage,
		URL:     "http://localhost:3000/sign-in",
		OnClick: app(sixDigitsPage, "424242"),
	})
	require.NoError(err)

	var sleeps []time.Duration
	m, err := signin.NewMachine(signin.MachineConfig{
		Page:        p,
		Credentials: model.NewCredentials("test@example.com", ""),
		Sleep: func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		},
	})
	require.NoError(err)

	_, err = m.Run(context.Background())
	require.NoError(err)

	// The hidden email input is skipped, the visible identifier input is used.
	events := p.Events()
	require.NotEmpty(events)
	assert.Equal("focus", events[0].Type)
	assert.Equal("identifier", attr(events[0].Target.Attr, "name"))
	assert.Equal("input", events[1].Type)
	assert.Equal("change", events[2].Type)
	assert.Equal("click", events[3].Type)

	ms := 200 * time.Millisecond
	dd := 60 * time.Millisecond
	assert.Equal([]time.Duration{ms, dd, dd, dd, dd, dd, dd}, sleeps)
}

func attr(attrs []html.Attribute, name string) string {
	for _, a := range attrs {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func TestNewMachineInvalidConfig(t *testing.T) {
	tests := map[string]struct {
		cfg signin.MachineConfig
	}{
		"Missing page should fail.": {
			cfg: signin.MachineConfig{Credentials: model.NewCredentials("a@b.c", "")},
		},
		"Missing email should fail.": {
			cfg: signin.MachineConfig{Page: &htmlpage.Page{}, Credentials: model.NewCredentials("", "")},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			_, err := signin.NewMachine(test.cfg)
			assert.Error(err)
		})
	}
}

func TestScript(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	js, err := signin.Script(model.NewCredentials("o'hara@example.com", ""), signin.DefaultTimings)
	require.NoError(err)

	assert.NoError(signin.CheckScript(js))
	assert.Contains(js, `"email":"o'hara@example.com"`)
	assert.Contains(js, `"code":"424242"`)
	assert.Contains(js, "20000")
	assert.Contains(js, "25000")
	assert.Contains(js, "30000")
	assert.NotContains(js, "?.")
	assert.NotContains(js, "??")

	_, err = signin.Script(model.NewCredentials("", ""), signin.DefaultTimings)
	assert.ErrorIs(err, model.ErrNotValid)

	assert.Error(signin.CheckScript("(async () => {"))
}
