package env_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/sbxsmoke/internal/utils/env"
)

func TestParseSpecs(t *testing.T) {
	t.Setenv("SBXSMOKE_TEST_FROM_ENV", "from-env")

	tests := map[string]struct {
		specs  []string
		expEnv map[string]string
		expErr bool
	}{
		"Key values should be parsed.": {
			specs:  []string{"A=1", "B=x=y", "C="},
			expEnv: map[string]string{"A": "1", "B": "x=y", "C": ""},
		},

		"A bare key should take its value from the environment.": {
			specs:  []string{"SBXSMOKE_TEST_FROM_ENV"},
			expEnv: map[string]string{"SBXSMOKE_TEST_FROM_ENV": "from-env"},
		},

		"A bare key missing in the environment should fail.": {
			specs:  []string{"SBXSMOKE_TEST_MISSING_KEY"},
			expErr: true,
		},

		"An invalid key should fail.": {
			specs:  []string{"1A=b"},
			expErr: true,
		},

		"An empty spec should fail.": {
			specs:  []string{""},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			got, err := env.ParseSpecs(test.specs)

			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.expEnv, got)
			}
		})
	}
}

func TestMergeMaps(t *testing.T) {
	got := env.MergeMaps(map[string]string{"A": "1", "B": "2"}, map[string]string{"B": "3"})
	assert.Equal(t, map[string]string{"A": "1", "B": "3"}, got)
}

func TestUpsert(t *testing.T) {
	tests := map[string]struct {
		content string
		vars    map[string]string
		exp     string
	}{
		"Existing keys should be replaced in place.": {
			content: "# api\nDATABASE_URL=sqlite://db\nFRONTEND_URL=http://localhost:3000\n",
			vars:    map[string]string{"FRONTEND_URL": "https://web.example.com"},
			exp:     "# api\nDATABASE_URL=sqlite://db\nFRONTEND_URL=\"https://web.example.com\"\n",
		},

		"Exported assignments should be replaced.": {
			content: "export A=1\n",
			vars:    map[string]string{"A": "x"},
			exp:     "A=\"x\"\n",
		},

		"Missing keys should be appended in order.": {
			content: "A=1\n",
			vars:    map[string]string{"C": "3", "B": "2"},
			exp:     "A=1\nB=2\nC=3\n",
		},

		"An empty document should get the variables.": {
			content: "",
			vars:    map[string]string{"API_BASE_URL": "https://api.example.com"},
			exp:     "API_BASE_URL=\"https://api.example.com\"\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			got := env.Upsert(test.content, test.vars)
			assert.Equal(test.exp, got)

			// The result must parse back with the upserted values.
			vars, err := env.Parse(got)
			require.NoError(err)
			for k, v := range test.vars {
				assert.Equal(v, vars[k])
			}
		})
	}
}

func TestOrigin(t *testing.T) {
	tests := map[string]struct {
		url    string
		exp    string
		expErr bool
	}{
		"A URL with path should return its origin.": {
			url: "https://abc.example.com/path?q=1",
			exp: "https://abc.example.com",
		},

		"A URL with port should keep the port.": {
			url: "http://localhost:3000/",
			exp: "http://localhost:3000",
		},

		"A URL without scheme should fail.": {
			url:    "example.com",
			expErr: true,
		},

		"An unparseable URL should fail.": {
			url:    "http://[::1",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			got, err := env.Origin(test.url)

			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.exp, got)
			}
		})
	}
}

func TestNewPreviewOverrides(t *testing.T) {
	tests := map[string]struct {
		backend  string
		frontend string
		exp      *env.PreviewOverrides
		expOK    bool
		expErr   bool
	}{
		"Both preview URLs should override the app env.": {
			backend:  "https://api-8000.example.com/",
			frontend: "https://web-3000.example.com/",
			exp: &env.PreviewOverrides{
				API: map[string]string{
					"FRONTEND_URL": "https://web-3000.example.com",
					"BACKEND_URL":  "https://api-8000.example.com",
					"CORS_ORIGINS": "http://localhost:3000,https://web-3000.example.com",
				},
				Web: map[string]string{"API_BASE_URL": "https://api-8000.example.com"},
			},
			expOK: true,
		},

		"A missing backend URL should not override anything.": {
			frontend: "https://web-3000.example.com/",
		},

		"A missing frontend URL should not override anything.": {
			backend: "https://api-8000.example.com/",
		},

		"An invalid preview URL should fail.": {
			backend:  "nope",
			frontend: "https://web-3000.example.com/",
			expErr:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			got, ok, err := env.NewPreviewOverrides(test.backend, test.frontend, "http://localhost:3000")

			if test.expErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(test.expOK, ok)
			assert.Equal(test.exp, got)
		})
	}
}
