package privacy

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"smsview/internal/constants"
)

// MaskPhoneNumber masks a phone number showing only the last 4 digits
// Example: "+1234567890" -> "+******7890"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	if strings.HasPrefix(phone, "+") {
		if len(phone) == 1 {
			return phone
		}
		if len(phone) <= 5 {
			return "+" + strings.Repeat("*", len(phone)-1)
		}
		return "+" + strings.Repeat("*", len(phone)-5) + phone[len(phone)-4:]
	}

	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskName keeps the first couple of characters of a person's name
// Example: "Alice Smith" -> "Al*********"
func MaskName(name string) string {
	if name == "" {
		return ""
	}

	count := utf8.RuneCountInString(name)
	keep := constants.DefaultNameMaskVisible
	if count <= keep {
		return strings.Repeat("*", count)
	}

	runes := []rune(name)
	return string(runes[:keep]) + strings.Repeat("*", count-keep)
}

// MaskFileName masks the stem of a file name but keeps its extension,
// since backup exports are often named after a contact.
// Example: "sms-alice.xml" -> "sm*******.xml"
func MaskFileName(name string) string {
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	return MaskName(strings.TrimSuffix(base, ext)) + ext
}

// MaskContent hides free text completely
func MaskContent(content string) string {
	if content == "" {
		return ""
	}
	return "[hidden]"
}

// MaskSensitiveFields applies appropriate masking to common logging fields
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		s, isString := v.(string)
		if !isString {
			masked[k] = v
			continue
		}

		switch k {
		case "address", "phone", "phone_number":
			masked[k] = MaskPhoneNumber(s)
		case "contact", "contact_name":
			masked[k] = MaskName(s)
		case "file", "file_name":
			masked[k] = MaskFileName(s)
		case "body", "content", "term", "query", "value":
			masked[k] = MaskContent(s)
		default:
			masked[k] = v
		}
	}

	return masked
}
