// Package security masks credentials before they reach logs, the audit trail
// or terminal output.
package security

import (
	"regexp"
	"strings"
)

// sensitiveFields contains field names whose values are always masked.
var sensitiveFields = map[string]bool{
	"jwt_secret":     true,
	"redis_password": true,
	"secret":         true,
	"password":       true,
	"token":          true,
	"access_token":   true,
	"authorization":  true,
	"bearer":         true,
	"credentials":    true,
}

// sensitivePatterns match credentials embedded in free text.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(bearer)\s+([A-Za-z0-9_\-\.]+)`),
	regexp.MustCompile(`(?i)\b(secret|password|token)([=:]\s*)["']?([^\s"',]+)["']?`),
	regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`), // JWT
}

// MaskCredential masks a credential value for display.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// MaskSensitive masks credentials embedded in free text.
func MaskSensitive(input string) string {
	result := sensitivePatterns[0].ReplaceAllStringFunc(input, func(match string) string {
		parts := strings.Fields(match)
		return parts[0] + " " + MaskCredential(parts[len(parts)-1])
	})
	result = sensitivePatterns[1].ReplaceAllStringFunc(result, func(match string) string {
		sub := sensitivePatterns[1].FindStringSubmatch(match)
		return sub[1] + sub[2] + MaskCredential(sub[3])
	})
	return sensitivePatterns[2].ReplaceAllStringFunc(result, MaskCredential)
}

// ContainsSensitiveData reports whether input holds something MaskSensitive
// would change.
func ContainsSensitiveData(input string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

// RedactDetails returns a copy of data with credential fields masked and
// string values scrubbed.
func RedactDetails(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	result := make(map[string]interface{}, len(data))
	for k, v := range data {
		strVal, isString := v.(string)
		switch {
		case sensitiveFields[strings.ToLower(k)] && isString:
			result[k] = MaskCredential(strVal)
		case sensitiveFields[strings.ToLower(k)]:
			result[k] = "***"
		case isString:
			result[k] = MaskSensitive(strVal)
		default:
			result[k] = v
		}
	}
	return result
}
