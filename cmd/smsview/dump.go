package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"smsview/internal/models"
	"smsview/internal/session"
	"smsview/internal/view"

	"github.com/sirupsen/logrus"
)

type dumpOutput struct {
	File     string           `json:"file"`
	Term     string           `json:"term,omitempty"`
	Total    int              `json:"total"`
	Count    int              `json:"count"`
	Messages []models.Message `json:"messages"`
}

// runDump prints the conversation in path, filtered by term, as text or JSON.
// The file goes through the same loader checks as an upload. The path was
// typed by the local user, so it is not restricted further.
func runDump(w io.Writer, path, term string, asJSON bool) error {
	f, err := os.Open(path) // #nosec G304 - path given on the command line by the local user
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	sess := session.New()
	loader := session.NewLoader(sess, quiet)
	if _, err := loader.Load(context.Background(), path, f); err != nil {
		return err
	}
	v := sess.Filter(term)

	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(dumpOutput{
			File:     path,
			Term:     term,
			Total:    v.Total,
			Count:    v.Count,
			Messages: v.Messages,
		})
	}
	return view.RenderText(w, v.Messages)
}
