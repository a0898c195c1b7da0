package registry

import "regexp"

var bearerPattern = regexp.MustCompile(`Bearer.*`)

// Sanitize strips bearer tokens from captured process output before it is
// logged or recorded anywhere.
func Sanitize(output string) string {
	return bearerPattern.ReplaceAllString(output, "")
}
