package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

const SignalPayloadSize = 40

// EncodeSignal serializes a signal into a fixed-size payload.
func EncodeSignal(dst []byte, sig schema.Signal) []byte {
	if cap(dst) < SignalPayloadSize {
		dst = make([]byte, SignalPayloadSize)
	} else {
		dst = dst[:SignalPayloadSize]
	}

	binary.LittleEndian.PutUint32(dst[0:4], uint32(sig.InstrumentID))
	binary.LittleEndian.PutUint32(dst[4:8], sig.StrategyID)
	binary.LittleEndian.PutUint16(dst[8:10], uint16(sig.Side))
	binary.LittleEndian.PutUint16(dst[10:12], uint16(sig.Type))
	binary.LittleEndian.PutUint16(dst[12:14], sig.Flags)
	binary.LittleEndian.PutUint16(dst[14:16], 0)
	putFloat(dst[16:24], float64(sig.Qty))
	putFloat(dst[24:32], float64(sig.LimitPrice))
	putFloat(dst[32:40], float64(sig.AuxPrice))

	return dst
}

// DecodeSignal parses a fixed-size signal payload.
func DecodeSignal(src []byte) (schema.Signal, bool) {
	if len(src) < SignalPayloadSize {
		return schema.Signal{}, false
	}
	return schema.Signal{
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[0:4])),
		StrategyID:   binary.LittleEndian.Uint32(src[4:8]),
		Side:         schema.OrderSide(binary.LittleEndian.Uint16(src[8:10])),
		Type:         schema.OrderType(binary.LittleEndian.Uint16(src[10:12])),
		Flags:        binary.LittleEndian.Uint16(src[12:14]),
		Qty:          schema.Quantity(getFloat(src[16:24])),
		LimitPrice:   schema.Price(getFloat(src[24:32])),
		AuxPrice:     schema.Price(getFloat(src[32:40])),
	}, true
}
