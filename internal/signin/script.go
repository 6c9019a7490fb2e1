package signin

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/dop251/goja"

	"github.com/slok/sbxsmoke/internal/model"
)

//go:embed signin.js.tmpl
var scriptTmplData string

var scriptTmpl = template.Must(template.New("signin.js").Parse(scriptTmplData))

type scriptData struct {
	Credentials         string
	EmailSelectors      string
	CodeSelector        string
	ClickableSelector   string
	EmailSubmitLabels   string
	CodeSubmitLabels    string
	SignInPath          string
	MaxDigitInputs      int
	PollMs              int64
	EmailTimeoutMs      int64
	CodeTimeoutMs       int64
	NavigationTimeoutMs int64
	EmailSettleMs       int64
	DigitDelayMs        int64
}

// Script returns the in-page program of the sign-in flow. Evaluated in a page it resolves
// to `{ok: true, url}` or rejects when a step times out.
func Script(creds model.Credentials, timings Timings) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}
	if timings == (Timings{}) {
		timings = DefaultTimings
	}

	data := scriptData{
		Credentials:         jsValue(map[string]string{"email": creds.Email, "code": creds.Code}),
		EmailSelectors:      jsValue(EmailSelectors),
		CodeSelector:        jsValue(strings.Join(CodeSelectors, ", ")),
		ClickableSelector:   jsValue(ClickableSelector),
		EmailSubmitLabels:   jsValue(EmailSubmitLabels),
		CodeSubmitLabels:    jsValue(CodeSubmitLabels),
		SignInPath:          jsValue(SignInPath),
		MaxDigitInputs:      MaxDigitInputs,
		PollMs:              timings.Poll.Milliseconds(),
		EmailTimeoutMs:      timings.EmailTimeout.Milliseconds(),
		CodeTimeoutMs:       timings.CodeTimeout.Milliseconds(),
		NavigationTimeoutMs: timings.NavigationTimeout.Milliseconds(),
		EmailSettleMs:       timings.EmailSettle.Milliseconds(),
		DigitDelayMs:        timings.DigitDelay.Milliseconds(),
	}

	var b bytes.Buffer
	if err := scriptTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("could not render sign-in script: %w", err)
	}

	return b.String(), nil
}

// CheckScript checks a sign-in program is valid JavaScript.
func CheckScript(program string) error {
	if _, err := goja.Compile("signin.js", program, false); err != nil {
		return fmt.Errorf("invalid sign-in script: %w", err)
	}
	return nil
}

// jsValue encodes a value as a JavaScript literal.
func jsValue(v any) string {
	// Marshaling strings, string slices and string maps can't fail.
	b, _ := json.Marshal(v)
	return string(b)
}
