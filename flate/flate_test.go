package flate

import (
	"bytes"
	stdflate "compress/flate"
	stdzlib "compress/zlib"
	"io"
	"math/rand"
	"testing"

	kpflate "github.com/klauspost/compress/flate"
	kpzlib "github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"

	pngenc "github.com/imaya/CanvasTool.PngEncoder"
)

func inflateRaw(t *testing.T, compressed []byte) []byte {
	t.Helper()
	r := stdflate.NewReader(bytes.NewReader(compressed))
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return out
}

func inflateZlib(t *testing.T, compressed []byte) []byte {
	t.Helper()
	r, err := stdzlib.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return out
}

func testInputs() map[string][]byte {
	rng := rand.New(rand.NewSource(1))
	random := make([]byte, 10000)
	rng.Read(random)
	text := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 400)
	mixed := append(append([]byte{}, text[:5000]...), random[:5000]...)
	return map[string][]byte{
		"empty":      nil,
		"one byte":   []byte("a"),
		"two bytes":  []byte("ab"),
		"repetitive": bytes.Repeat([]byte("abcabc"), 1000),
		"text":       text,
		"random":     random,
		"mixed":      mixed,
		"runs":       bytes.Repeat([]byte{0}, 70000),
	}
}

func TestDeflateRoundTrip(t *testing.T) {
	for name, input := range testInputs() {
		for _, bt := range []BlockType{Stored, Fixed, Dynamic} {
			t.Run(name+"/"+bt.String(), func(t *testing.T) {
				compressed, err := Deflate(input, Options{BlockType: bt, FinalBlock: true})
				require.NoError(t, err)
				require.Equal(t, input, normalize(inflateRaw(t, compressed)))

				// Cross-check with an independent inflater.
				r := kpflate.NewReader(bytes.NewReader(compressed))
				out, err := io.ReadAll(r)
				require.NoError(t, err)
				require.Equal(t, input, normalize(out))
			})
		}
	}
}

func TestZlibRoundTrip(t *testing.T) {
	for name, input := range testInputs() {
		for _, bt := range []BlockType{Stored, Fixed, Dynamic} {
			t.Run(name+"/"+bt.String(), func(t *testing.T) {
				compressed, err := Zlib(input, Options{BlockType: bt, FinalBlock: true})
				require.NoError(t, err)
				require.Equal(t, input, normalize(inflateZlib(t, compressed)))

				r, err := kpzlib.NewReader(bytes.NewReader(compressed))
				require.NoError(t, err)
				out, err := io.ReadAll(r)
				require.NoError(t, err)
				require.Equal(t, input, normalize(out))
			})
		}
	}
}

// normalize maps empty output to nil so require.Equal can compare
// against nil inputs.
func normalize(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func TestZlibStoredEmpty(t *testing.T) {
	compressed, err := Zlib(nil, Options{BlockType: Stored, FinalBlock: true})
	require.NoError(t, err)
	want := []byte{0x78, 0x01, 0x01, 0x00, 0x00, 0xff, 0xff, 0x00, 0x00, 0x00, 0x01}
	require.Equal(t, want, compressed)
}

func TestZlibFixedSingleByte(t *testing.T) {
	compressed, err := Zlib([]byte("a"), Options{BlockType: Fixed, FinalBlock: true})
	require.NoError(t, err)
	require.Len(t, compressed, 9)
	require.Equal(t, []byte("a"), inflateZlib(t, compressed))
	require.Equal(t, []byte{0x00, 0x62, 0x00, 0x62}, compressed[len(compressed)-4:])
}

func TestZlibDynamicRepetitive(t *testing.T) {
	input := bytes.Repeat([]byte("aaaaaaaaa"), 256)
	require.Len(t, input, 2304)
	compressed, err := Zlib(input, Options{BlockType: Dynamic, FinalBlock: true})
	require.NoError(t, err)
	require.Less(t, len(compressed), 2304+11)
	require.Equal(t, input, inflateZlib(t, compressed))
}

func TestZlibHeaderCheck(t *testing.T) {
	for _, bt := range []BlockType{Stored, Fixed, Dynamic} {
		compressed, err := Zlib([]byte("check"), Options{BlockType: bt, FinalBlock: true})
		require.NoError(t, err)
		cmf, flg := uint32(compressed[0]), uint32(compressed[1])
		require.Equal(t, uint32(0x78), cmf)
		require.Zero(t, (cmf*256+flg)%31, "block type %v", bt)
		require.Zero(t, flg&0x20, "FDICT must be clear")
	}
}

func TestStoredSplitsLongInput(t *testing.T) {
	input := make([]byte, 3*maxStoredSize/2)
	for i := range input {
		input[i] = byte(i)
	}
	compressed, err := Deflate(input, Options{BlockType: Stored, FinalBlock: true})
	require.NoError(t, err)
	require.Equal(t, input, inflateRaw(t, compressed))
}

func TestNonFinalStreamNeedsTerminator(t *testing.T) {
	head, err := Deflate([]byte("hello, "), Options{BlockType: Fixed, FinalBlock: false})
	require.NoError(t, err)
	tail, err := Deflate([]byte("world"), Options{BlockType: Stored, FinalBlock: true})
	require.NoError(t, err)
	// The non-final stream ends byte-aligned, so a stored terminator
	// can be concatenated directly.
	got := inflateRaw(t, append(head, tail...))
	require.Equal(t, []byte("hello, world"), got)
}

func TestWriterMultipleBlocks(t *testing.T) {
	input := bytes.Repeat([]byte("block after block after block. "), 5000)
	for _, bt := range []BlockType{Stored, Fixed, Dynamic} {
		b := new(bytes.Buffer)
		w := &pngenc.Writer{
			Dest:        b,
			MatchFinder: NewMatchFinder(),
			Encoder:     NewZlibEncoder(bt),
			BlockSize:   1 << 15,
		}
		_, err := w.Write(input)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.Equal(t, input, inflateZlib(t, b.Bytes()), "block type %v", bt)
	}
}

func TestMatchFinderTextDump(t *testing.T) {
	mf := NewMatchFinder()
	matches := mf.FindMatches(nil, []byte("abcabcabcabc"))
	out, err := pngenc.TextEncoder{}.Encode(nil, []byte("abcabcabcabc"), matches, true)
	require.NoError(t, err)
	require.Equal(t, "abc<9,3>", string(out))
}

func TestMatchProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	src := make([]byte, 50000)
	for i := range src {
		// Skewed distribution so matches actually occur.
		src[i] = byte(rng.Intn(7))
	}
	matches := NewMatchFinder().FindMatches(nil, src)

	pos := 0
	for _, m := range matches {
		pos += m.Unmatched
		if m.Length == 0 {
			continue
		}
		require.GreaterOrEqual(t, m.Length, minMatch)
		require.LessOrEqual(t, m.Length, maxMatch)
		require.GreaterOrEqual(t, m.Distance, 1)
		require.LessOrEqual(t, m.Distance, maxDistance)
		for i := 0; i < m.Length; i++ {
			require.Equal(t, src[pos-m.Distance+i], src[pos+i], "match at %d", pos)
		}
		pos += m.Length
	}
	require.LessOrEqual(t, pos, len(src))
}

func TestMatchFinderPrefersNearest(t *testing.T) {
	// Two candidates of equal length; the nearer one costs fewer
	// distance extra bits.
	src := append([]byte("needle....needle++++"), []byte("needle")...)
	matches := NewMatchFinder().FindMatches(nil, src)
	var found bool
	for _, m := range matches {
		if m.Length == 6 {
			require.Equal(t, 10, m.Distance)
			found = true
		}
	}
	require.True(t, found, "expected a 6-byte match")
}
