package export

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// Sender streams a flat file as an HTTP download.
type Sender struct {
	streamer    *Streamer
	ShowHeaders bool
	now         func() time.Time
}

// NewSender creates a sender with headers enabled.
func NewSender(s *Streamer) *Sender {
	return &Sender{streamer: s, ShowHeaders: true, now: time.Now}
}

// Send writes the download headers and every line to w. Once the first
// line is written, errors can no longer change the response status.
func (s *Sender) Send(ctx context.Context, w http.ResponseWriter) error {
	h := w.Header()
	h.Set("Last-Modified", s.now().UTC().Format(http.TimeFormat))
	h.Set("Content-Disposition", "attachment; filename="+s.streamer.Stem()+"."+s.streamer.Type())
	if s.streamer.Type() == "csv" {
		h.Set("Content-Type", "text/comma-separated-values")
	} else {
		h.Set("Content-Type", "text/plain")
	}

	if s.ShowHeaders {
		header, err := s.streamer.HeaderLine()
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, header); err != nil {
			return err
		}
	}
	for {
		line, err := s.streamer.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
}
