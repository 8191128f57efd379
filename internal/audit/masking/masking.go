package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a reference number while keeping the last four
// characters so staff can still match it against a bank statement.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}

	return prefix + maskToken + remainder[len(remainder)-4:]
}

// MaskFields returns a copy of input with the string values under keys
// masked. Other values are copied as is.
func MaskFields(input map[string]any, keys ...string) map[string]any {
	if len(input) == 0 {
		return nil
	}

	sensitive := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		sensitive[key] = struct{}{}
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := sensitive[trimmedKey]; ok {
			if s, isString := value.(string); isString {
				value = MaskSecret(s)
			}
		}
		out[trimmedKey] = value
	}
	return out
}

func splitPrefix(value string) (string, string) {
	lastSep := strings.LastIndexAny(value, "_-")
	if lastSep == -1 || lastSep == len(value)-1 {
		return "", value
	}
	return value[:lastSep+1], value[lastSep+1:]
}
