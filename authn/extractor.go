package authn

import "strings"

// bearerPrefix is matched case-sensitively with exactly one trailing space
const bearerPrefix = "Bearer "

// ExtractBearerToken pulls the token out of an Authorization header value.
// Only a value beginning with the literal prefix "Bearer " yields a token;
// anything else (missing header, wrong scheme, lowercase "bearer") returns
// the empty string.
func ExtractBearerToken(header string) string {
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return header[len(bearerPrefix):]
}
