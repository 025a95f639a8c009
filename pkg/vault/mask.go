package vault

import (
	"strings"

	"github.com/goliatone/go-configvault/pkg/domain"
	masker "github.com/goliatone/go-masker"
)

var defaultSensitiveFields = []string{
	"password", "passphrase", "secret",
	"token", "access_token", "api_key", "apikey", "apiKey",
	"private_key", "signing_key", "credential",
	"dsn", "connection_string",
}

func init() {
	// Register common secret-ish metadata fields so masking uses sane defaults.
	for _, field := range defaultSensitiveFields {
		masker.Default.RegisterMaskField(field, "preserveEnds(2,2)")
	}
}

// MaskMetadata returns a masked copy of record metadata for safe logging.
// Values under sensitive keys keep only their outer characters; everything
// else passes through untouched.
func MaskMetadata(metadata domain.JSONMap) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	masked := make(map[string]any, len(metadata))
	for key, value := range metadata {
		str, ok := value.(string)
		if !ok || !sensitiveField(key) {
			masked[key] = value
			continue
		}
		masked[key] = MaskValue(str)
	}
	return masked
}

// MaskValue masks a single sensitive string for log output.
func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	if masked, err := masker.Default.String("preserveEnds(2,2)", value); err == nil {
		return masked
	}
	// Fallback masking if no rule is registered.
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}

func sensitiveField(key string) bool {
	lowered := strings.ToLower(strings.TrimSpace(key))
	for _, field := range defaultSensitiveFields {
		if lowered == strings.ToLower(field) {
			return true
		}
		if strings.Contains(lowered, strings.ToLower(field)) {
			return true
		}
	}
	return false
}
