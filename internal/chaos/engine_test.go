package chaos

import (
	"testing"
	"time"

	"main/internal/bus"
	"main/internal/schema"
)

func event(seq uint64, ts int64) bus.Event {
	return bus.Event{
		Header: schema.NewHeader(schema.EventMarketData, schema.SourceLiveFeed, 1, seq, ts, ts),
	}
}

func TestValidateRejectsBadRates(t *testing.T) {
	cases := []Config{
		{DropRate: -0.1, ReorderWindow: 1},
		{DropRate: 1.5, ReorderWindow: 1},
		{DuplicateRate: 2, ReorderWindow: 1},
		{MaxDelay: -time.Second, ReorderWindow: 1},
	}
	for _, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected validation error for %+v", cfg)
		}
	}
}

func TestPassthroughWithoutChaos(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	for i := uint64(1); i <= 10; i++ {
		out := e.Process(event(i, int64(i)))
		if len(out) != 1 || out[0].Header.Seq != i {
			t.Fatalf("event %d not passed through: %v", i, out)
		}
	}
	if got := e.Flush(); len(got) != 0 {
		t.Fatalf("unexpected flush output: %v", got)
	}
}

func TestDropRateOneDropsEverything(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1, DropRate: 1})
	if err != nil {
		t.Fatal(err)
	}
	for i := uint64(1); i <= 100; i++ {
		if out := e.Process(event(i, int64(i))); len(out) != 0 {
			t.Fatalf("event %d survived full drop", i)
		}
	}
}

func TestDuplicateRateOneDoublesEverything(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1, DuplicateRate: 1})
	if err != nil {
		t.Fatal(err)
	}
	out := e.Process(event(1, 100))
	if len(out) != 2 {
		t.Fatalf("expected duplicate pair, got %d events", len(out))
	}
	if out[0].Header != out[1].Header {
		t.Fatal("duplicate differs from original")
	}
}

func TestReorderPreservesEventSet(t *testing.T) {
	const n = 50
	e, err := NewEngine(Config{Seed: 7, ReorderWindow: 8})
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[uint64]int)
	reordered := false
	var lastSeq uint64
	record := func(events []bus.Event) {
		for _, ev := range events {
			seen[ev.Header.Seq]++
			if ev.Header.Seq < lastSeq {
				reordered = true
			}
			lastSeq = ev.Header.Seq
		}
	}

	for i := uint64(1); i <= n; i++ {
		record(e.Process(event(i, int64(i))))
	}
	record(e.Flush())

	if len(seen) != n {
		t.Fatalf("lost events: saw %d of %d", len(seen), n)
	}
	for seq, count := range seen {
		if count != 1 {
			t.Fatalf("event %d emitted %d times", seq, count)
		}
	}
	if !reordered {
		t.Fatal("window of 8 over 50 events produced no reordering")
	}
}

func TestDelayOnlyIncreasesRecvTime(t *testing.T) {
	e, err := NewEngine(Config{Seed: 3, MaxDelay: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	for i := uint64(1); i <= 100; i++ {
		ts := int64(i) * int64(time.Second)
		out := e.Process(event(i, ts))
		if len(out) != 1 {
			t.Fatalf("event %d not emitted", i)
		}
		if out[0].Header.TsRecv < ts {
			t.Fatalf("delay moved recv time backwards: %d < %d", out[0].Header.TsRecv, ts)
		}
		if out[0].Header.TsEvent != ts {
			t.Fatal("delay must not touch the event timestamp")
		}
	}
}

func TestSameSeedSameDisorder(t *testing.T) {
	run := func() []uint64 {
		e, err := NewEngine(Config{Seed: 99, DropRate: 0.2, DuplicateRate: 0.2, ReorderWindow: 4})
		if err != nil {
			t.Fatal(err)
		}
		var seqs []uint64
		for i := uint64(1); i <= 200; i++ {
			for _, ev := range e.Process(event(i, int64(i))) {
				seqs = append(seqs, ev.Header.Seq)
			}
		}
		for _, ev := range e.Flush() {
			seqs = append(seqs, ev.Header.Seq)
		}
		return seqs
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("runs diverged in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs diverged at %d: %d vs %d", i, a[i], b[i])
		}
	}
}
