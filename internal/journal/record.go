package journal

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"hftexec/pkg/exception"
)

// Record layout, little endian:
//
//	magic[4] version u16 headerSize u16 topicLen u16 flags u16
//	payloadLen u32 seq u64 tsPub i64 | topic | payload | crc32c u32
const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 32
	recordChecksumSize        = 4
	maxTopicLen               = 1<<16 - 1
	maxPayloadLen             = uint64(^uint32(0))
)

var (
	recordMagic = [4]byte{'E', 'X', 'J', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

// Record is one journaled bus message. Payload is the JSON encoded message.
type Record struct {
	Seq     uint64
	TsPub   int64
	Topic   string
	Payload []byte
}

func (r Record) size() int64 {
	return int64(recordHeaderSize + len(r.Topic) + len(r.Payload) + recordChecksumSize)
}

func encodeHeader(dst []byte, r Record) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], recordHeaderSize)
	binary.LittleEndian.PutUint16(dst[8:10], uint16(len(r.Topic)))
	binary.LittleEndian.PutUint16(dst[10:12], 0)
	binary.LittleEndian.PutUint32(dst[12:16], uint32(len(r.Payload)))
	binary.LittleEndian.PutUint64(dst[16:24], r.Seq)
	binary.LittleEndian.PutUint64(dst[24:32], uint64(r.TsPub))
}

func checksum(parts ...[]byte) uint32 {
	var crc uint32
	for _, p := range parts {
		crc = crc32.Update(crc, crcTable, p)
	}
	return crc
}

// decodeHeader returns the record with Seq and TsPub set, plus the lengths
// of the topic and payload that follow.
func decodeHeader(src []byte) (Record, int, uint32, error) {
	if len(src) < recordHeaderSize {
		return Record{}, 0, 0, exception.ErrJournalInvalidHeader
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return Record{}, 0, 0, exception.ErrJournalInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(src[4:6]); v != recordVersion {
		return Record{}, 0, 0, exception.ErrJournalUnsupportedVer
	}
	if hs := binary.LittleEndian.Uint16(src[6:8]); hs != recordHeaderSize {
		return Record{}, 0, 0, exception.ErrJournalInvalidHeader
	}
	topicLen := int(binary.LittleEndian.Uint16(src[8:10]))
	payloadLen := binary.LittleEndian.Uint32(src[12:16])
	r := Record{
		Seq:   binary.LittleEndian.Uint64(src[16:24]),
		TsPub: int64(binary.LittleEndian.Uint64(src[24:32])),
	}
	return r, topicLen, payloadLen, nil
}
