// Package filter selects the messages a search term matches.
package filter

import (
	"strings"

	"smsview/internal/models"
)

// Messages returns the messages whose body contains term, ignoring case, in
// their original order. An empty term returns msgs unchanged. The result is
// never nil.
func Messages(msgs []models.Message, term string) []models.Message {
	if term == "" {
		if msgs == nil {
			return []models.Message{}
		}
		return msgs
	}

	needle := strings.ToLower(term)
	matched := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		if Matches(msg, needle) {
			matched = append(matched, msg)
		}
	}
	return matched
}

// Matches reports whether msg's body contains the already lower-cased needle.
func Matches(msg models.Message, needle string) bool {
	return strings.Contains(strings.ToLower(msg.Body), needle)
}
