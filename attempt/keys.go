package attempt

import "strings"

const (
	failPrefix  = "login:fail:"
	blockPrefix = "login:block:"
)

// NormalizeEmail trims and lower-cases an email so every key for the same
// account addresses the same counter.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func failKey(email, ip string) string {
	return failPrefix + NormalizeEmail(email) + ":" + ip
}

func blockKey(email, ip string) string {
	return blockPrefix + NormalizeEmail(email) + ":" + ip
}
