// Package view renders a conversation as the browser page or as plain text.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"smsview/internal/constants"
	"smsview/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	SideSent     = "sent"
	SideReceived = "received"
)

// Routes used by the page's script. They must match the server's router.
const (
	UploadPath   = "/api/backup"
	MessagesPath = "/api/messages"
	SocketPath   = "/ws"
)

var pageTemplate = template.Must(
	template.New("index.html.tmpl").
		Funcs(template.FuncMap{"side": Side}).
		ParseFS(templateFS, "templates/index.html.tmpl"),
)

// Page is the data rendered into the single page.
type Page struct {
	Title        string
	Accept       string
	Term         string
	Generation   uint64
	Total        int
	Count        int
	Messages     []models.Message
	UploadPath   string
	MessagesPath string
	SocketPath   string
}

// NewPage fills the fixed parts of a Page.
func NewPage(term string, generation uint64, total int, msgs []models.Message) Page {
	return Page{
		Title:        "SMS Backup Viewer",
		Accept:       constants.BackupFileExtension,
		Term:         term,
		Generation:   generation,
		Total:        total,
		Count:        len(msgs),
		Messages:     msgs,
		UploadPath:   UploadPath,
		MessagesPath: MessagesPath,
		SocketPath:   SocketPath,
	}
}

// RenderPage writes the HTML page.
func RenderPage(w io.Writer, page Page) error {
	if err := pageTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// Side tells which side of the conversation a message is drawn on.
func Side(msg models.Message) string {
	if msg.IsSent() {
		return SideSent
	}
	return SideReceived
}

// RenderText writes msgs as plain text, one block per message. Received
// messages start with "<-", sent ones with "->"; body lines are indented.
func RenderText(w io.Writer, msgs []models.Message) error {
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		arrow := "<-"
		if msg.IsSent() {
			arrow = "->"
		}
		b.WriteString(arrow)
		b.WriteByte(' ')
		b.WriteString(msg.ContactName)
		if msg.Date != "" {
			b.WriteString("  ")
			b.WriteString(msg.Date)
		}
		b.WriteByte('\n')
		for _, line := range strings.Split(msg.Body, "\n") {
			b.WriteString("   ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
