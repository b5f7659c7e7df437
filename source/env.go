package source

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// EnvLoader loads configuration from environment variables.
//
// Variables are matched by prefix and converted to option paths: single
// underscores separate path segments, double underscores become dashes
// inside a segment. PROFIG_BASIC_CONTACT__POINTS maps to
// basic.contact-points. Explicit mappings take precedence over the
// conversion for names it can't express.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "PROFIG_")
	mapping map[string]string // Env var -> option path
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "PROFIG_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: make(map[string]string),
	}
}

// NewEnvLoaderWithMapping creates a loader with explicit variable mappings.
func NewEnvLoaderWithMapping(prefix string, mapping map[string]string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: mapping,
	}
}

// AddMapping adds an explicit environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, optionPath string) {
	if l.mapping == nil {
		l.mapping = make(map[string]string)
	}
	l.mapping[envVar] = optionPath
}

// RemoveMapping removes an explicit environment variable mapping.
func (l *EnvLoader) RemoveMapping(envVar string) {
	delete(l.mapping, envVar)
}

// Load reads environment variables and returns an option map.
// Empty string values count as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	// Explicitly mapped variables first.
	for env, path := range l.mapping {
		if val, ok := os.LookupEnv(env); ok {
			setByPath(config, path, l.parseValue(val))
		}
	}

	// Then scan for prefixed variables not in the mapping.
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, l.prefix) {
			continue
		}

		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		name := parts[0]
		value := parts[1]

		if _, ok := l.mapping[name]; ok {
			continue
		}

		path := l.envToPath(name)
		if path == "" {
			continue
		}
		setByPath(config, path, l.parseValue(value))
	}

	return config, nil
}

// envToPath converts PROFIG_BASIC_REQUEST_TIMEOUT to basic.request.timeout
// and PROFIG_BASIC_CONTACT__POINTS to basic.contact-points.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.TrimPrefix(env, l.prefix)
	parts := strings.Split(name, "_")

	var segments []string
	for i := 0; i < len(parts); i++ {
		part := parts[i]
		if part == "" {
			// Empty part marks a double underscore: the next part
			// continues the previous segment after a dash.
			if len(segments) > 0 && i+1 < len(parts) {
				segments[len(segments)-1] += "-" + strings.ToLower(parts[i+1])
				i++
			}
			continue
		}
		segments = append(segments, strings.ToLower(part))
	}

	return strings.Join(segments, ".")
}

// parseValue attempts to parse the string value into an appropriate type.
// Integers are tried before booleans so "1" stays numeric.
func (l *EnvLoader) parseValue(s string) any {
	if s == "" {
		return s
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	// JSON arrays and objects for list-valued options.
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		if gjson.Valid(s) {
			return gjson.Parse(s).Value()
		}
	}

	return s
}

// setByPath sets a value in a nested map using a dot-separated path,
// creating intermediate maps as needed.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data

	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if next, ok := current[part].(map[string]any); ok {
			current = next
		} else {
			next := make(map[string]any)
			current[part] = next
			current = next
		}
	}

	current[parts[len(parts)-1]] = value
}
