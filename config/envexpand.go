package config

import (
	"os"
	"regexp"
	"strings"
)

// envRef matches ${VAR} and ${VAR:-default}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*)?\}`)

// ExpandEnv expands ${VAR} and ${VAR:-default} references from the process
// environment. An unset or empty variable takes its default, or expands to
// "" when it has none; Validate catches the missing values that matter.
func ExpandEnv(input string) string {
	out, _ := ExpandEnvFunc(input, os.LookupEnv)
	return out
}

// ExpandEnvFunc expands references using lookup and returns the names that
// resolved to nothing (unset or empty, without a default).
func ExpandEnvFunc(input string, lookup func(string) (string, bool)) (string, []string) {
	var missing []string
	var b strings.Builder
	last := 0
	for _, m := range envRef.FindAllStringSubmatchIndex(input, -1) {
		b.WriteString(input[last:m[0]])
		last = m[1]

		name := input[m[2]:m[3]]
		if v, ok := lookup(name); ok && v != "" {
			b.WriteString(v)
			continue
		}
		if m[4] >= 0 {
			if def := input[m[4]+2 : m[5]]; def != "" {
				b.WriteString(def)
				continue
			}
		}
		missing = append(missing, name)
	}
	b.WriteString(input[last:])
	return b.String(), missing
}
