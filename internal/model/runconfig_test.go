package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/sbxsmoke/internal/model"
)

func TestParseRunConfig(t *testing.T) {
	tests := map[string]struct {
		data     string
		expected model.RunConfig
		expErr   bool
	}{
		"A complete camel case document should be parsed.": {
			data: `{"setup": "make setup", "run": "make run", "openUrl": "http://127.0.0.1:3000/", "recordWaitMs": 3000, "scrollPx": 900}`,
			expected: model.RunConfig{
				Setup:        "make setup",
				Run:          "make run",
				OpenURL:      "http://127.0.0.1:3000/",
				RecordWaitMs: 3000,
				ScrollPx:     900,
			},
		},
		"Snake case aliases should be accepted.": {
			data: `{"setup": "s", "run": "r", "open_url": "http://x/", "record_wait_ms": 2000, "scroll_px": 100}`,
			expected: model.RunConfig{
				Setup:        "s",
				Run:          "r",
				OpenURL:      "http://x/",
				RecordWaitMs: 2000,
				ScrollPx:     100,
			},
		},
		"Camel case keys should take priority over snake case aliases.": {
			data: `{"setup": "s", "run": "r", "recordWaitMs": 10, "record_wait_ms": 20}`,
			expected: model.RunConfig{
				Setup:        "s",
				Run:          "r",
				OpenURL:      model.DefaultOpenURL,
				RecordWaitMs: 10,
				ScrollPx:     model.DefaultScrollPx,
			},
		},
		"Omitted optional fields should use the defaults.": {
			data: `{"setup": "s", "run": "r"}`,
			expected: model.RunConfig{
				Setup:        "s",
				Run:          "r",
				OpenURL:      "http://127.0.0.1:3000/sign-in",
				RecordWaitMs: 1200,
				ScrollPx:     500,
			},
		},
		"Numeric strings should be accepted.": {
			data: `{"setup": "s", "run": "r", "recordWaitMs": " 4000 ", "scrollPx": "250"}`,
			expected: model.RunConfig{
				Setup:        "s",
				Run:          "r",
				OpenURL:      model.DefaultOpenURL,
				RecordWaitMs: 4000,
				ScrollPx:     250,
			},
		},
		"Invalid numbers should fall back to the defaults.": {
			data: `{"setup": "s", "run": "r", "recordWaitMs": "soon", "scrollPx": -10}`,
			expected: model.RunConfig{
				Setup:        "s",
				Run:          "r",
				OpenURL:      model.DefaultOpenURL,
				RecordWaitMs: 1200,
				ScrollPx:     500,
			},
		},
		"Zero and boolean values should fall back to the defaults.": {
			data: `{"setup": "s", "run": "r", "recordWaitMs": 0, "scrollPx": true}`,
			expected: model.RunConfig{
				Setup:        "s",
				Run:          "r",
				OpenURL:      model.DefaultOpenURL,
				RecordWaitMs: 1200,
				ScrollPx:     500,
			},
		},
		"Non finite numbers should fall back to the defaults.": {
			data: "setup: s\nrun: r\nrecordWaitMs: .inf\nscrollPx: .nan\n",
			expected: model.RunConfig{
				Setup:        "s",
				Run:          "r",
				OpenURL:      model.DefaultOpenURL,
				RecordWaitMs: 1200,
				ScrollPx:     500,
			},
		},
		"An empty open URL should use the default.": {
			data: `{"setup": "s", "run": "r", "openUrl": "  "}`,
			expected: model.RunConfig{
				Setup:        "s",
				Run:          "r",
				OpenURL:      model.DefaultOpenURL,
				RecordWaitMs: 1200,
				ScrollPx:     500,
			},
		},
		"YAML documents should be accepted.": {
			data: "setup: pnpm i\nrun: pnpm dev\nscroll_px: 700\n",
			expected: model.RunConfig{
				Setup:        "pnpm i",
				Run:          "pnpm dev",
				OpenURL:      model.DefaultOpenURL,
				RecordWaitMs: 1200,
				ScrollPx:     700,
			},
		},
		"Huge numbers should be capped instead of overflowing.": {
			data: `{"setup": "s", "run": "r", "recordWaitMs": 1e20, "scrollPx": "1e30"}`,
			expected: model.RunConfig{
				Setup:        "s",
				Run:          "r",
				OpenURL:      model.DefaultOpenURL,
				RecordWaitMs: 2147483647,
				ScrollPx:     2147483647,
			},
		},
		"Fractions should be truncated and values below one should become one.": {
			data: `{"setup": "s", "run": "r", "recordWaitMs": 0.5, "scrollPx": "250.9"}`,
			expected: model.RunConfig{
				Setup:        "s",
				Run:          "r",
				OpenURL:      model.DefaultOpenURL,
				RecordWaitMs: 1,
				ScrollPx:     250,
			},
		},
		"JSON escaped slashes should be decoded.": {
			data: `{"setup": "echo a\/b", "run": "true", "openUrl": "http:\/\/127.0.0.1:3000\/home"}`,
			expected: model.RunConfig{
				Setup:        "echo a/b",
				Run:          "true",
				OpenURL:      "http://127.0.0.1:3000/home",
				RecordWaitMs: 1200,
				ScrollPx:     500,
			},
		},
		"JSON duplicate keys should keep the last value.": {
			data: `{"setup": "a", "setup": "b", "run": "true"}`,
			expected: model.RunConfig{
				Setup:        "b",
				Run:          "true",
				OpenURL:      model.DefaultOpenURL,
				RecordWaitMs: 1200,
				ScrollPx:     500,
			},
		},
		"Malformed JSON should fail.": {
			data:   `{"setup": "s", "run": "r",}`,
			expErr: true,
		},
		"Missing setup should fail.": {
			data:   `{"run": "r"}`,
			expErr: true,
		},
		"Missing run should fail.": {
			data:   `{"setup": "s"}`,
			expErr: true,
		},
		"Blank setup should fail.": {
			data:   `{"setup": "   ", "run": "r"}`,
			expErr: true,
		},
		"Non string run should fail.": {
			data:   `{"setup": "s", "run": 42}`,
			expErr: true,
		},
		"A non object document should fail.": {
			data:   `["setup", "run"]`,
			expErr: true,
		},
		"An empty document should fail.": {
			data:   ``,
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			cfg, err := model.ParseRunConfig([]byte(test.data))

			if test.expErr {
				assert.ErrorIs(err, model.ErrNotValid)
			} else {
				require.NoError(err)
				assert.Equal(test.expected, cfg)
				assert.NoError(cfg.Validate())
			}
		})
	}
}
