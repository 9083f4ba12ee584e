package codec

import (
	"testing"

	"main/internal/schema"
)

func TestEncodeReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 128)
	out := EncodeFill(buf, schema.Fill{OrderID: 1, Price: 50, Qty: 2})
	if &out[0] != &buf[:1][0] {
		t.Fatal("encode should reuse caller buffer when capacity allows")
	}
	if len(out) != FillPayloadSize {
		t.Fatalf("len = %d, want %d", len(out), FillPayloadSize)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	if _, ok := DecodeMarketData(make([]byte, MarketDataPayloadSize-1)); ok {
		t.Fatal("truncated market data must not decode")
	}
	if _, ok := DecodeSignal(make([]byte, SignalPayloadSize-1)); ok {
		t.Fatal("truncated signal must not decode")
	}
	if _, ok := DecodeFill(make([]byte, FillPayloadSize-1)); ok {
		t.Fatal("truncated fill must not decode")
	}
	if _, ok := DecodeOrderAck(make([]byte, OrderAckPayloadSize-1)); ok {
		t.Fatal("truncated ack must not decode")
	}
}

func TestFillRoundTripPreservesFractions(t *testing.T) {
	in := schema.Fill{
		OrderID:      42,
		InstrumentID: 7,
		Side:         schema.OrderSideSell,
		Price:        50.0005,
		Qty:          2.5,
		Fee:          1.70,
		TsEvent:      1_700_000_000_000,
	}
	out, ok := DecodeFill(EncodeFill(nil, in))
	if !ok {
		t.Fatal("decode failed")
	}
	if out != in {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}
