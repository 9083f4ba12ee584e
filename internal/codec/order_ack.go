package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

const OrderAckPayloadSize = 28

// EncodeOrderAck serializes an order acknowledgment into a fixed-size
// payload.
func EncodeOrderAck(dst []byte, ack schema.OrderAck) []byte {
	if cap(dst) < OrderAckPayloadSize {
		dst = make([]byte, OrderAckPayloadSize)
	} else {
		dst = dst[:OrderAckPayloadSize]
	}

	binary.LittleEndian.PutUint64(dst[0:8], ack.OrderID)
	binary.LittleEndian.PutUint32(dst[8:12], uint32(ack.InstrumentID))
	binary.LittleEndian.PutUint16(dst[12:14], uint16(ack.Status))
	binary.LittleEndian.PutUint16(dst[14:16], uint16(ack.Reason))
	binary.LittleEndian.PutUint16(dst[16:18], ack.Flags)
	binary.LittleEndian.PutUint16(dst[18:20], 0)
	binary.LittleEndian.PutUint64(dst[20:28], uint64(ack.TsEvent))

	return dst
}

// DecodeOrderAck parses a fixed-size order acknowledgment payload.
func DecodeOrderAck(src []byte) (schema.OrderAck, bool) {
	if len(src) < OrderAckPayloadSize {
		return schema.OrderAck{}, false
	}
	return schema.OrderAck{
		OrderID:      binary.LittleEndian.Uint64(src[0:8]),
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[8:12])),
		Status:       schema.OrderAckStatus(binary.LittleEndian.Uint16(src[12:14])),
		Reason:       schema.OrderAckReason(binary.LittleEndian.Uint16(src[14:16])),
		Flags:        binary.LittleEndian.Uint16(src[16:18]),
		TsEvent:      int64(binary.LittleEndian.Uint64(src[20:28])),
	}, true
}
