package meta

import (
	"os"
	"regexp"
)

var envExpr = regexp.MustCompile(`\$\{env\.([\p{L}\p{N}_]*)\}`)

// expandEnv replaces ${env.KEY} occurrences with the value of the KEY
// environment variable; unset variables expand to an empty string and
// malformed expressions are left untouched.
func expandEnv(value string) string {
	return envExpr.ReplaceAllStringFunc(value, func(match string) string {
		key := envExpr.FindStringSubmatch(match)[1]
		return os.Getenv(key)
	})
}
