package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

const FillPayloadSize = 48

// EncodeFill serializes a fill into a fixed-size payload.
func EncodeFill(dst []byte, fill schema.Fill) []byte {
	if cap(dst) < FillPayloadSize {
		dst = make([]byte, FillPayloadSize)
	} else {
		dst = dst[:FillPayloadSize]
	}

	binary.LittleEndian.PutUint64(dst[0:8], fill.OrderID)
	binary.LittleEndian.PutUint32(dst[8:12], uint32(fill.InstrumentID))
	binary.LittleEndian.PutUint16(dst[12:14], uint16(fill.Side))
	binary.LittleEndian.PutUint16(dst[14:16], fill.Flags)
	putFloat(dst[16:24], float64(fill.Price))
	putFloat(dst[24:32], float64(fill.Qty))
	putFloat(dst[32:40], fill.Fee)
	binary.LittleEndian.PutUint64(dst[40:48], uint64(fill.TsEvent))

	return dst
}

// DecodeFill parses a fixed-size fill payload.
func DecodeFill(src []byte) (schema.Fill, bool) {
	if len(src) < FillPayloadSize {
		return schema.Fill{}, false
	}
	return schema.Fill{
		OrderID:      binary.LittleEndian.Uint64(src[0:8]),
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[8:12])),
		Side:         schema.OrderSide(binary.LittleEndian.Uint16(src[12:14])),
		Flags:        binary.LittleEndian.Uint16(src[14:16]),
		Price:        schema.Price(getFloat(src[16:24])),
		Qty:          schema.Quantity(getFloat(src[24:32])),
		Fee:          getFloat(src[32:40]),
		TsEvent:      int64(binary.LittleEndian.Uint64(src[40:48])),
	}, true
}
