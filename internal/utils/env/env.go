// Package env has helpers to handle environment variables and dotenv files.
package env

import (
	"fmt"
	"maps"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/joho/godotenv"
)

var envKeyRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseSpecs parses `KEY=VALUE` specs, a bare `KEY` takes its value from the process environment.
func ParseSpecs(specs []string) (map[string]string, error) {
	env := make(map[string]string, len(specs))

	for _, spec := range specs {
		if spec == "" {
			return nil, fmt.Errorf("environment variable spec cannot be empty")
		}

		if key, value, ok := strings.Cut(spec, "="); ok {
			if !isValidKey(key) {
				return nil, fmt.Errorf("invalid environment variable key %q", key)
			}

			env[key] = value
			continue
		}

		if !isValidKey(spec) {
			return nil, fmt.Errorf("invalid environment variable key %q", spec)
		}

		value, ok := os.LookupEnv(spec)
		if !ok {
			return nil, fmt.Errorf("environment variable %q is not set", spec)
		}

		env[spec] = value
	}

	return env, nil
}

// MergeMaps returns a new map with base values overridden by override values.
func MergeMaps(base map[string]string, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	maps.Copy(merged, base)
	maps.Copy(merged, override)
	return merged
}

// Parse parses a dotenv document.
func Parse(content string) (map[string]string, error) {
	vars, err := godotenv.Unmarshal(content)
	if err != nil {
		return nil, fmt.Errorf("invalid env file: %w", err)
	}
	return vars, nil
}

// Upsert sets the variables in a dotenv document. The first line assigning a key is replaced
// and the rest of the document is kept as is, missing keys are appended in key order.
// The result always ends with a newline.
func Upsert(content string, vars map[string]string) string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if content == "" {
		lines = nil
	}

	done := map[string]bool{}
	for i, line := range lines {
		key := lineKey(line)
		value, ok := vars[key]
		if !ok || done[key] {
			continue
		}
		lines[i] = assignment(key, value)
		done[key] = true
	}

	for _, key := range slices.Sorted(maps.Keys(vars)) {
		if !done[key] {
			lines = append(lines, assignment(key, vars[key]))
		}
	}

	return strings.Join(lines, "\n") + "\n"
}

func lineKey(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "export ")
	key, _, ok := strings.Cut(line, "=")
	if !ok {
		return ""
	}
	return strings.TrimSpace(key)
}

func assignment(key, value string) string {
	// Marshal quotes and escapes the value the same way it's parsed back.
	line, err := godotenv.Marshal(map[string]string{key: value})
	if err != nil {
		return key + "=" + value
	}
	return line
}

// Origin returns the `scheme://host` part of a URL.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no scheme or host", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// PreviewOverrides are the app env variables that point the apps to their preview URLs.
type PreviewOverrides struct {
	API map[string]string
	Web map[string]string
}

// NewPreviewOverrides returns the overrides for the backend and frontend preview URLs. When
// any of them is missing there is nothing to override and false is returned.
func NewPreviewOverrides(backendURL, frontendURL, localFrontendOrigin string) (*PreviewOverrides, bool, error) {
	if backendURL == "" || frontendURL == "" {
		return nil, false, nil
	}

	apiOrigin, err := Origin(backendURL)
	if err != nil {
		return nil, false, err
	}
	webOrigin, err := Origin(frontendURL)
	if err != nil {
		return nil, false, err
	}

	return &PreviewOverrides{
		API: map[string]string{
			"FRONTEND_URL": webOrigin,
			"BACKEND_URL":  apiOrigin,
			"CORS_ORIGINS": localFrontendOrigin + "," + webOrigin,
		},
		Web: map[string]string{
			"API_BASE_URL": apiOrigin,
		},
	}, true, nil
}

func isValidKey(k string) bool {
	return envKeyRegexp.MatchString(k)
}
