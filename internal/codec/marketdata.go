// Package codec serializes event payloads into fixed-size little-endian
// records. The journal and the ingress queue share these layouts, so a
// recorded stream replays byte for byte.
package codec

import (
	"encoding/binary"
	"math"

	"main/internal/schema"
)

const MarketDataPayloadSize = 88

// EncodeMarketData serializes market data into a fixed-size payload.
func EncodeMarketData(dst []byte, md schema.MarketData) []byte {
	if cap(dst) < MarketDataPayloadSize {
		dst = make([]byte, MarketDataPayloadSize)
	} else {
		dst = dst[:MarketDataPayloadSize]
	}

	binary.LittleEndian.PutUint32(dst[0:4], uint32(md.InstrumentID))
	binary.LittleEndian.PutUint16(dst[4:6], uint16(md.Kind))
	binary.LittleEndian.PutUint16(dst[6:8], md.Flags)
	putFloat(dst[8:16], float64(md.Open))
	putFloat(dst[16:24], float64(md.High))
	putFloat(dst[24:32], float64(md.Low))
	putFloat(dst[32:40], float64(md.Close))
	putFloat(dst[40:48], float64(md.Last))
	putFloat(dst[48:56], float64(md.Volume))
	putFloat(dst[56:64], float64(md.BidPrice))
	putFloat(dst[64:72], float64(md.BidSize))
	putFloat(dst[72:80], float64(md.AskPrice))
	putFloat(dst[80:88], float64(md.AskSize))

	return dst
}

// DecodeMarketData parses a fixed-size market data payload.
func DecodeMarketData(src []byte) (schema.MarketData, bool) {
	if len(src) < MarketDataPayloadSize {
		return schema.MarketData{}, false
	}
	return schema.MarketData{
		InstrumentID: schema.InstrumentID(binary.LittleEndian.Uint32(src[0:4])),
		Kind:         schema.MarketDataKind(binary.LittleEndian.Uint16(src[4:6])),
		Flags:        binary.LittleEndian.Uint16(src[6:8]),
		Open:         schema.Price(getFloat(src[8:16])),
		High:         schema.Price(getFloat(src[16:24])),
		Low:          schema.Price(getFloat(src[24:32])),
		Close:        schema.Price(getFloat(src[32:40])),
		Last:         schema.Price(getFloat(src[40:48])),
		Volume:       schema.Quantity(getFloat(src[48:56])),
		BidPrice:     schema.Price(getFloat(src[56:64])),
		BidSize:      schema.Quantity(getFloat(src[64:72])),
		AskPrice:     schema.Price(getFloat(src[72:80])),
		AskSize:      schema.Quantity(getFloat(src[80:88])),
	}, true
}

func putFloat(dst []byte, v float64) {
	binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
}

func getFloat(src []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(src))
}
