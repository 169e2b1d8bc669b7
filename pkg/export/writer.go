package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// WriteMode selects how an existing file is treated.
type WriteMode int

const (
	Overwrite WriteMode = iota
	Append
)

// Writer writes a Streamer to one or more files. With LinesPerFile set,
// the output is split: the first file is renamed to name_01.ext and the
// following ones are name_02.ext, name_03.ext, ...
type Writer struct {
	streamer     *Streamer
	ShowHeaders  bool
	Mode         WriteMode
	LinesPerFile int
	Log          logrus.FieldLogger

	path  string
	seq   int
	file  *os.File
	buf   *bufio.Writer
	files []string
}

// NewWriter creates a writer with headers enabled.
func NewWriter(s *Streamer) *Writer {
	return &Writer{
		streamer:    s,
		ShowHeaders: true,
		Log:         logrus.StandardLogger(),
	}
}

// Write writes every row and returns the paths written, in order.
func (w *Writer) Write(ctx context.Context) (files []string, err error) {
	w.path = w.streamer.Filename()
	w.seq = 0
	w.files = nil

	if err := w.start(); err != nil {
		_ = w.end()
		return nil, err
	}
	defer func() {
		if cerr := w.end(); err == nil {
			err = cerr
		}
		files = w.files
	}()

	written := 0
	for {
		line, err := w.streamer.Next(ctx)
		if errors.Is(err, io.EOF) {
			return w.files, nil
		}
		if err != nil {
			return w.files, err
		}
		if w.LinesPerFile > 0 && written > 0 && written%w.LinesPerFile == 0 {
			if err := w.nextFile(); err != nil {
				return w.files, err
			}
		}
		if _, err := w.buf.WriteString(line); err != nil {
			return w.files, err
		}
		written++
	}
}

func (w *Writer) start() error {
	flags := os.O_CREATE | os.O_WRONLY
	if w.Mode == Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(w.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.path, err)
	}
	w.file = f
	w.buf = bufio.NewWriter(f)
	w.files = append(w.files, w.path)

	if w.ShowHeaders {
		header, err := w.streamer.HeaderLine()
		if err != nil {
			return err
		}
		if _, err := w.buf.WriteString(header); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) end() error {
	if w.file == nil {
		return nil
	}
	err := errors.Join(w.buf.Flush(), w.file.Close())
	w.file, w.buf = nil, nil
	return err
}

func (w *Writer) nextFile() error {
	if err := w.end(); err != nil {
		return err
	}
	dir := filepath.Dir(w.path)
	ext := filepath.Ext(w.path)
	stem := strings.TrimSuffix(filepath.Base(w.path), ext)

	if w.seq == 0 {
		first := filepath.Join(dir, stem+"_01"+ext)
		if err := os.Rename(w.path, first); err != nil {
			return err
		}
		w.files[len(w.files)-1] = first
		w.seq = 1
	} else {
		stem = stem[:len(stem)-len("_00")]
	}

	w.seq++
	w.path = filepath.Join(dir, fmt.Sprintf("%s_%02d%s", stem, w.seq, ext))
	w.Log.WithField("file", w.path).Debug("continuing export in next file")
	return w.start()
}
