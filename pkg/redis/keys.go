package redis

import "fmt"

// Key construction helpers

// PreferenceKey returns the key for a persisted dashboard preference (string)
// Pattern: dashboard:prefs:{name}
func PreferenceKey(name string) string {
	return fmt.Sprintf("dashboard:prefs:%s", name)
}
