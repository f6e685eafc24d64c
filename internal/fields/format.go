package fields

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CategoriesField renders as a bracketed list of quoted strings.
const CategoriesField = "categories"

// Env looks up an environment variable, like os.LookupEnv.
type Env func(name string) (string, bool)

// EnvFrom returns an Env over a fixed set of variables.
func EnvFrom(vars map[string]string) Env {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

// Environ returns the current process environment as a map.
func Environ() map[string]string {
	env := os.Environ()
	out := make(map[string]string, len(env))
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

// Format renders a resolved value for command output, expanding variables
// from the process environment.
func Format(field string, v Value) string { return FormatEnv(field, v, os.LookupEnv) }

// FormatEnv is Format with variables expanded from env.
func FormatEnv(field string, v Value, env Env) string {
	if field == CategoriesField {
		return formatCategories(v, env)
	}
	if !v.Found {
		return ""
	}
	return formatValue(v.Raw, env)
}

// FormatAll renders every value in vals.
func FormatAll(vals map[string]Value) map[string]string { return FormatAllEnv(vals, os.LookupEnv) }

// FormatAllEnv renders every value in vals against env.
func FormatAllEnv(vals map[string]Value, env Env) map[string]string {
	out := make(map[string]string, len(vals))
	for k, v := range vals {
		out[k] = FormatEnv(k, v, env)
	}
	return out
}

func formatCategories(v Value, env Env) string {
	var items []string
	switch t := v.Raw.(type) {
	case nil:
		items = []string{""}
	case []any:
		for _, e := range t {
			items = append(items, formatValue(e, env))
		}
	default:
		items = []string{formatValue(t, env)}
	}
	return "['" + strings.Join(items, "', '") + "']"
}

func formatValue(raw any, env Env) string {
	switch t := raw.(type) {
	case nil:
		return ""
	case string:
		return expandEnv(t, env)
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eEIN") {
			s += ".0"
		}
		return s
	case time.Time:
		if t.Equal(t.Truncate(24 * time.Hour)) {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	case []any, map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
	return fmt.Sprint(raw)
}

var envRef = regexp.MustCompile(`\$(\w+|\{\w+\})`)

// expandEnv substitutes $VAR and ${VAR}. Unset variables are left as written.
func expandEnv(s string, env Env) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := strings.Trim(ref[1:], "{}")
		if v, ok := env(name); ok {
			return v
		}
		return ref
	})
}
