package pngenc_test

import (
	"bytes"
	stdflate "compress/flate"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	pngenc "github.com/imaya/CanvasTool.PngEncoder"
	"github.com/imaya/CanvasTool.PngEncoder/flate"
)

func TestWriterReuse(t *testing.T) {
	input := bytes.Repeat([]byte("reusable stream content. "), 3000)
	w := &pngenc.Writer{
		MatchFinder: pngenc.AutoReset{MatchFinder: flate.NewMatchFinder()},
		Encoder:     flate.NewEncoder(),
		BlockSize:   1 << 14,
	}
	for i := 0; i < 3; i++ {
		b := new(bytes.Buffer)
		w.Reset(b)
		_, err := w.Write(input)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r := stdflate.NewReader(bytes.NewReader(b.Bytes()))
		out, err := io.ReadAll(r)
		require.NoError(t, err)
		require.Equal(t, input, out)
	}
}

func TestWriterRejectsWriteAfterClose(t *testing.T) {
	w := &pngenc.Writer{
		Dest:        io.Discard,
		MatchFinder: flate.NewMatchFinder(),
		Encoder:     flate.NewEncoder(),
	}
	require.NoError(t, w.Close())
	_, err := w.Write([]byte("late"))
	require.Error(t, err)
}

func TestTextEncoder(t *testing.T) {
	src := []byte("to be or not to be")
	matches := flate.NewMatchFinder().FindMatches(nil, src)
	out, err := pngenc.TextEncoder{}.Encode(nil, src, matches, true)
	require.NoError(t, err)
	require.Equal(t, "to be or not <5,13>", string(out))
}
