package journal

import (
	"bufio"
	"encoding/binary"
	"io"

	"hftexec/pkg/exception"
)

// Reader decodes journal records from one segment.
type Reader struct {
	r            *bufio.Reader
	header       [recordHeaderSize]byte
	skipChecksum bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// SkipChecksum disables checksum verification, for salvaging damaged segments.
func (r *Reader) SkipChecksum() *Reader {
	r.skipChecksum = true
	return r
}

// Next returns the next record, or io.EOF at a clean end of segment. A
// segment cut mid record yields io.ErrUnexpectedEOF.
func (r *Reader) Next() (Record, error) {
	n, err := io.ReadFull(r.r, r.header[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			return Record{}, io.EOF
		}
		return Record{}, io.ErrUnexpectedEOF
	}
	rec, topicLen, payloadLen, err := decodeHeader(r.header[:])
	if err != nil {
		return Record{}, err
	}

	body := make([]byte, topicLen+int(payloadLen)+recordChecksumSize)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return Record{}, io.ErrUnexpectedEOF
	}
	topic := body[:topicLen]
	payload := body[topicLen : topicLen+int(payloadLen)]
	want := binary.LittleEndian.Uint32(body[len(body)-recordChecksumSize:])
	if !r.skipChecksum && checksum(r.header[:], topic, payload) != want {
		return Record{}, exception.ErrJournalChecksumMismatch
	}

	rec.Topic = string(topic)
	rec.Payload = payload
	return rec, nil
}
