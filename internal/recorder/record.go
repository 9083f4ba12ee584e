// Package recorder journals every ingress event to append-only segment
// files and replays them. A backtest replayed from a journal feeds the
// dispatcher the exact bytes the live run saw.
package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"

	"main/internal/schema"
)

const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 48
	recordChecksumSize        = 4
)

var (
	recordMagic = [4]byte{'E', 'V', 'T', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic            = errors.New("journal invalid magic")
	ErrUnsupportedRecordVer    = errors.New("journal unsupported record version")
	ErrInvalidRecordHeaderSize = errors.New("journal invalid header size")
)

func encodeHeader(dst []byte, header schema.EventHeader, payloadLen int) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(recordHeaderSize))
	binary.LittleEndian.PutUint16(dst[8:10], uint16(header.Type))
	binary.LittleEndian.PutUint16(dst[10:12], header.Version)
	binary.LittleEndian.PutUint16(dst[12:14], uint16(header.Source))
	binary.LittleEndian.PutUint16(dst[14:16], header.Flags)
	binary.LittleEndian.PutUint32(dst[16:20], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[20:28], header.Seq)
	binary.LittleEndian.PutUint32(dst[28:32], uint32(header.InstrumentID))
	binary.LittleEndian.PutUint64(dst[32:40], uint64(header.TsEvent))
	binary.LittleEndian.PutUint64(dst[40:48], uint64(header.TsRecv))
}

func checksum(header []byte, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}

func decodeRecordHeader(src []byte) (schema.EventHeader, uint32, error) {
	if len(src) < recordHeaderSize {
		return schema.EventHeader{}, 0, ErrInvalidRecordHeaderSize
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return schema.EventHeader{}, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return schema.EventHeader{}, 0, ErrUnsupportedRecordVer
	}
	if headerSize := binary.LittleEndian.Uint16(src[6:8]); headerSize != recordHeaderSize {
		return schema.EventHeader{}, 0, ErrInvalidRecordHeaderSize
	}
	payloadLen := binary.LittleEndian.Uint32(src[16:20])
	h := schema.EventHeader{
		Type:         schema.EventType(binary.LittleEndian.Uint16(src[8:10])),
		Version:      binary.LittleEndian.Uint16(src[10:12]),
		Source:       schema.EventSource(binary.LittleEndian.Uint16(src[12:14])),
		Flags:        binary.LittleEndian.Uint16(src[14:16]),
		Seq:          binary.LittleEndian.Uint64(src[20:28]),
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[28:32])),
		TsEvent:      int64(binary.LittleEndian.Uint64(src[32:40])),
		TsRecv:       int64(binary.LittleEndian.Uint64(src[40:48])),
	}
	return h, payloadLen, nil
}
