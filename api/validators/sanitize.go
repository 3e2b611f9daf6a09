package validators

import "strings"

const bearerPrefix = "bearer "

// NormalizeToken trims a pasted token and drops a leading "Bearer " scheme or
// surrounding quotes.
func NormalizeToken(input string) string {
	token := strings.TrimSpace(input)
	if len(token) >= len(bearerPrefix) && strings.EqualFold(token[:len(bearerPrefix)], bearerPrefix) {
		token = strings.TrimSpace(token[len(bearerPrefix):])
	}
	return strings.Trim(token, `"'`)
}
