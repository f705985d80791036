package masking

import "strings"

const maskToken = "****"

// rules are checked in order against the lower-cased metadata key. The
// first match decides how the string value is masked.
var rules = []struct {
	fragment string
	mask     func(string) string
}{
	{"email", MaskEmail},
	{"recipient", MaskEmail},
	{"secret", MaskSecret},
	{"password", func(string) string { return maskToken }},
	{"token", MaskSecret},
	{"key", MaskSecret},
	{"card", MaskSecret},
}

// MaskSecret redacts a secret, keeping any "sk_live_" style prefix and the
// last four characters.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := "", trimmed
	if i := strings.LastIndex(trimmed, "_"); i >= 0 && i < len(trimmed)-1 {
		prefix, remainder = trimmed[:i+1], trimmed[i+1:]
	}
	if len(remainder) <= 4 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-4:]
}

// MaskEmail keeps the first character of the local part and the domain so
// support can still recognise the customer.
func MaskEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 || at == len(trimmed)-1 {
		return MaskSecret(trimmed)
	}
	return trimmed[:1] + maskToken + trimmed[at:]
}

// MaskSensitive returns a copy of metadata with string values under
// sensitive-looking keys masked. Other values pass through unchanged.
func MaskSensitive(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if mask := maskerFor(key); mask != nil {
			out[key] = apply(mask, value)
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			out[key] = MaskSensitive(nested)
			continue
		}
		out[key] = value
	}
	return out
}

func maskerFor(key string) func(string) string {
	lower := strings.ToLower(key)
	for _, rule := range rules {
		if strings.Contains(lower, rule.fragment) {
			return rule.mask
		}
	}
	return nil
}

func apply(mask func(string) string, value any) any {
	switch cast := value.(type) {
	case string:
		return mask(cast)
	case *string:
		if cast == nil {
			return nil
		}
		return mask(*cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, apply(mask, item))
		}
		return out
	default:
		return value
	}
}
