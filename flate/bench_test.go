package flate

import (
	"bytes"
	"testing"

	pngenc "github.com/imaya/CanvasTool.PngEncoder"
)

func benchmark(b *testing.B, bt BlockType, input []byte) {
	b.ReportAllocs()
	b.SetBytes(int64(len(input)))
	buf := new(bytes.Buffer)
	w := &pngenc.Writer{
		Dest:        buf,
		MatchFinder: NewMatchFinder(),
		Encoder:     NewZlibEncoder(bt),
		BlockSize:   1 << 16,
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Reset(buf)
		buf.Reset()
		w.Write(input)
		w.Close()
	}
}

func benchInput() []byte {
	return bytes.Repeat([]byte("a benchmark needs something mildly compressible to chew on; "), 1000)
}

func BenchmarkEncodeStored(b *testing.B) {
	benchmark(b, Stored, benchInput())
}

func BenchmarkEncodeFixed(b *testing.B) {
	benchmark(b, Fixed, benchInput())
}

func BenchmarkEncodeDynamic(b *testing.B) {
	benchmark(b, Dynamic, benchInput())
}
