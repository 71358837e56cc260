package filter

import (
	"testing"

	"smsview/internal/models"

	"github.com/stretchr/testify/assert"
)

var conversation = []models.Message{
	{Type: "1", ContactName: "Alice", Body: "Yo there", Date: "Jan 1"},
	{Type: "2", ContactName: "Me", Body: "Hello", Date: "Jan 1"},
	{Type: "1", ContactName: "Alice", Body: "you up? YOLO", Date: "Jan 2"},
	{Type: "1", ContactName: "Yolanda", Body: "", Date: "Jan 3"},
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name     string
		term     string
		expected []string
	}{
		{"empty term returns all", "", []string{"Yo there", "Hello", "you up? YOLO", ""}},
		{"case insensitive", "yo", []string{"Yo there", "you up? YOLO"}},
		{"upper case term", "HELLO", []string{"Hello"}},
		{"no match", "bye", []string{}},
		{"contact name is not searched", "yolanda", []string{}},
		{"date is not searched", "jan", []string{}},
		{"inner substring", "up?", []string{"you up? YOLO"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Messages(conversation, tt.term)

			bodies := make([]string, 0, len(got))
			for _, msg := range got {
				bodies = append(bodies, msg.Body)
			}
			assert.Equal(t, tt.expected, bodies)
		})
	}
}

func TestMessages_EmptyTermKeepsSlice(t *testing.T) {
	got := Messages(conversation, "")
	assert.Equal(t, conversation, got)
}

func TestMessages_DoesNotModifyInput(t *testing.T) {
	input := append([]models.Message(nil), conversation...)
	_ = Messages(input, "hello")
	assert.Equal(t, conversation, input)
}

func TestMessages_NilInput(t *testing.T) {
	for _, term := range []string{"", "x"} {
		got := Messages(nil, term)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches(models.Message{Body: "Yo there"}, "yo"))
	assert.False(t, Matches(models.Message{Body: "Hello"}, "yo"))
}
