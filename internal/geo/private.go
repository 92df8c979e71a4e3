package geo

import "strings"

// privatePrefixes are matched as plain string prefixes. "172." covers the whole
// 172.0.0.0/8 block, not only 172.16.0.0/12.
var privatePrefixes = []string{"10.", "172.", "192.168.", "127."}

// IsPrivate reports whether ip starts with one of the private or loopback prefixes.
func IsPrivate(ip string) bool {
	for _, p := range privatePrefixes {
		if strings.HasPrefix(ip, p) {
			return true
		}
	}
	return false
}
