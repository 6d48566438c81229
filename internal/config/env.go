package config

import (
	"os"
	"regexp"

	"github.com/koustreak/priam/internal/errs"
)

// ${VAR} or {{ env.VAR }}
var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}|\{\{\s*env\.(\w+)\s*\}\}`)

// expandEnv walks a decoded YAML tree and substitutes placeholders in every
// string. Keys are left alone.
func expandEnv(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return substituteEnvVars(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			e, err := expandEnv(val)
			if err != nil {
				return nil, err
			}
			out[k] = e
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			e, err := expandEnv(val)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	default:
		return v, nil
	}
}

func substituteEnvVars(value string) (string, error) {
	var missing string
	result := envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		envValue, ok := os.LookupEnv(name)
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return envValue
	})
	if missing != "" {
		return "", errs.Newf(errs.ErrKindConfiguration, "environment variable %q is not set", missing)
	}
	return result, nil
}
