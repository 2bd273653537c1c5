package cache

import "fmt"

// TokenKey caches resolved token lookups by full code.
func TokenKey(fullCode string) string {
	return fmt.Sprintf("token:%s", fullCode)
}

// RateLimitKey counts requests per API key prefix.
func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

// ResolveLimitKey counts public resolve attempts per client address, a
// defense against code enumeration.
func ResolveLimitKey(remoteAddr string) string {
	return fmt.Sprintf("resolvelimit:%s", remoteAddr)
}
