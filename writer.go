package pngenc

import (
	"errors"
	"io"
)

var errClosed = errors.New("pngenc: writer is closed")

// A Writer compresses data with a MatchFinder and an Encoder,
// and writes it to Dest in blocks of at most BlockSize bytes.
type Writer struct {
	Dest        io.Writer
	MatchFinder MatchFinder
	Encoder     Encoder

	// BlockSize is the largest block the data of one Write call is
	// split into before compression; data of separate Write calls is
	// never merged into one block. If it is 0, each Write call is one
	// block. Close always writes a separate, empty final block.
	BlockSize int

	buf     []byte
	matches []Match
	wrote   bool
	closed  bool
}

func (w *Writer) Write(p []byte) (n int, err error) {
	if w.closed {
		return 0, errClosed
	}
	for len(p) > 0 {
		b := p
		if w.BlockSize > 0 && len(b) > w.BlockSize {
			b = b[:w.BlockSize]
		}
		if err := w.writeBlock(b, false); err != nil {
			return n, err
		}
		n += len(b)
		p = p[len(b):]
	}
	return n, nil
}

// Close writes the final block, terminating the stream. It does not
// close Dest.
func (w *Writer) Close() error {
	if w.closed {
		return errClosed
	}
	w.closed = true
	return w.writeBlock(nil, true)
}

func (w *Writer) writeBlock(b []byte, last bool) error {
	w.buf = w.buf[:0]
	if !w.wrote {
		w.buf = w.Encoder.Header(w.buf)
	}
	w.matches = w.MatchFinder.FindMatches(w.matches[:0], b)
	var err error
	w.buf, err = w.Encoder.Encode(w.buf, b, w.matches, last)
	if err != nil {
		return err
	}
	w.wrote = true
	_, err = w.Dest.Write(w.buf)
	return err
}

// Reset prepares the Writer to compress a new stream to dest.
func (w *Writer) Reset(dest io.Writer) {
	w.MatchFinder.Reset()
	w.Encoder.Reset()
	w.Dest = dest
	w.wrote = false
	w.closed = false
}

// AutoReset wraps a MatchFinder, calling Reset before each block so
// that matches never refer to data from a previous block.
type AutoReset struct {
	MatchFinder
}

func (a AutoReset) FindMatches(dst []Match, src []byte) []Match {
	a.Reset()
	return a.MatchFinder.FindMatches(dst, src)
}
