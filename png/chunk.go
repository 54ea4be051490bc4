package png

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/rs/zerolog"
)

// pngSignature is the eight-byte file header.
var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// A chunkWriter assembles the chunk stream in a byte buffer. Each
// chunk is (length, type, data, CRC) with the CRC taken over type and
// data (PNG 5.3).
type chunkWriter struct {
	buf   []byte
	start int
	log   zerolog.Logger
}

func newChunkWriter(capacity int, log zerolog.Logger) *chunkWriter {
	if capacity < 64 {
		capacity = 64
	}
	return &chunkWriter{
		buf: append(make([]byte, 0, capacity), pngSignature...),
		log: log,
	}
}

// startChunk begins a chunk of the given type; data is then appended
// directly to w.buf until endChunk.
func (w *chunkWriter) startChunk(name string) {
	w.start = len(w.buf)
	w.buf = append(w.buf, 0, 0, 0, 0)
	w.buf = append(w.buf, name...)
}

// endChunk backfills the length and appends the CRC.
func (w *chunkWriter) endChunk() {
	body := w.buf[w.start:]
	binary.BigEndian.PutUint32(body, uint32(len(body)-8))
	crc := crc32.ChecksumIEEE(body[4:])
	w.buf = binary.BigEndian.AppendUint32(w.buf, crc)
	w.log.Debug().
		Str("chunk", string(body[4:8])).
		Int("len", len(body)-8).
		Msg("png: wrote chunk")
}

func (w *chunkWriter) writeChunk(name string, data []byte) {
	w.startChunk(name)
	w.buf = append(w.buf, data...)
	w.endChunk()
}

func (w *chunkWriter) appendUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *chunkWriter) appendUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}
