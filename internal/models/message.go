package models

import "time"

// MessageTypeSent is the backup's type code for messages sent from the device.
const MessageTypeSent = "2"

// MessageTypeReceived is the backup's type code for messages received on the device.
const MessageTypeReceived = "1"

// RawSMS is one sms element of a backup file. A nil field was absent from the source.
type RawSMS struct {
	Type         *string
	ContactName  *string
	Body         *string
	ReadableDate *string
	Address      *string
}

// Message is the display-ready record built from one RawSMS.
type Message struct {
	Type        string `json:"type"`
	ContactName string `json:"contact_name"`
	Body        string `json:"body"`
	Date        string `json:"date"`
}

// IsSent reports whether the device owner sent the message.
func (m Message) IsSent() bool {
	return m.Type == MessageTypeSent
}

type LoadStatus string

const (
	LoadStatusApplied      LoadStatus = "applied"
	LoadStatusSuperseded   LoadStatus = "superseded"
	LoadStatusReadFailure  LoadStatus = "read_failure"
	LoadStatusParseFailure LoadStatus = "parse_failure"
)

// LoadResult describes a finished load.
type LoadResult struct {
	Generation   uint64     `json:"generation"`
	FileName     string     `json:"file_name"`
	SizeBytes    int64      `json:"size_bytes"`
	Digest       string     `json:"digest"`
	MessageCount int        `json:"message_count"`
	Applied      bool       `json:"applied"`
	Status       LoadStatus `json:"status"`
}

// LoadEvent is a journal row. It never carries message content.
type LoadEvent struct {
	ID           string     `db:"id" json:"id"`
	Generation   uint64     `db:"generation" json:"generation"`
	FileName     string     `db:"file_name" json:"file_name"`
	SizeBytes    int64      `db:"size_bytes" json:"size_bytes"`
	Digest       string     `db:"digest" json:"digest"`
	MessageCount int        `db:"message_count" json:"message_count"`
	Status       LoadStatus `db:"status" json:"status"`
	ErrorCode    string     `db:"error_code" json:"error_code,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
