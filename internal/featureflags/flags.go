package featureflags

import (
	"os"
	"strings"
)

// Enabled reports whether the named flag is switched on. Flags live in the
// environment as FLAG_<NAME>; anything truthy ("1", "true", "yes", "on",
// any case) enables them, everything else including absence disables them.
func Enabled(name string) bool {
	value := strings.ToLower(os.Getenv(envKey(name)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func envKey(name string) string {
	return "FLAG_" + strings.ToUpper(name)
}
