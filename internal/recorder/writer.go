package recorder

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"main/internal/schema"
)

var (
	ErrQueueFull       = errors.New("journal queue full")
	ErrClosed          = errors.New("journal writer closed")
	ErrNotStarted      = errors.New("journal writer not started")
	ErrAlreadyStarted  = errors.New("journal writer already started")
	ErrPayloadTooLarge = errors.New("journal payload too large")
)

// Writer journals events to append-only segment files. TryAppend copies
// the payload and enqueues without blocking; a single background
// goroutine owns all file IO, so the dispatch path never touches a disk.
type Writer struct {
	cfg Config
	ch  chan record
	wg  sync.WaitGroup
	err atomic.Value

	started uint32
	closed  uint32
}

type record struct {
	header  schema.EventHeader
	payload []byte
}

// NewWriter creates a journal writer and ensures the target directory
// exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{
		cfg: cfg,
		ch:  make(chan record, cfg.QueueSize),
	}, nil
}

// Start runs the writer loop in a new goroutine.
func (w *Writer) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&w.started, 0, 1) {
		return ErrAlreadyStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// Close stops the writer and flushes any buffered data.
func (w *Writer) Close() error {
	if atomic.CompareAndSwapUint32(&w.closed, 0, 1) {
		close(w.ch)
	}
	w.wg.Wait()
	return w.Err()
}

// Err returns the first error observed by the writer, if any.
func (w *Writer) Err() error {
	if v := w.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// TryAppend enqueues an event without blocking. The payload is copied;
// callers are free to reuse their encode buffers.
func (w *Writer) TryAppend(header schema.EventHeader, payload []byte) error {
	if atomic.LoadUint32(&w.closed) != 0 {
		return ErrClosed
	}
	if atomic.LoadUint32(&w.started) == 0 {
		return ErrNotStarted
	}
	if err := w.Err(); err != nil {
		return err
	}
	if len(payload) > maxRecordPayload {
		return ErrPayloadTooLarge
	}
	if header.Version == 0 {
		header.Version = schema.SchemaVersion
	}

	rec := record{header: header}
	if len(payload) > 0 {
		rec.payload = make([]byte, len(payload))
		copy(rec.payload, payload)
	}
	select {
	case w.ch <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Writer) run(ctx context.Context) {
	state := &writerState{
		cfg:     w.cfg,
		scratch: make([]byte, 0, recordHeaderSize+maxRecordPayload+recordChecksumSize),
	}

	var flushC, syncC <-chan time.Time
	if w.cfg.FlushInterval > 0 {
		t := time.NewTicker(w.cfg.FlushInterval)
		defer t.Stop()
		flushC = t.C
	}
	if w.cfg.SyncInterval > 0 {
		t := time.NewTicker(w.cfg.SyncInterval)
		defer t.Stop()
		syncC = t.C
	}
	defer func() {
		if err := state.close(); err != nil {
			w.setErr(err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Take what is already queued, then stop.
			for {
				select {
				case rec, ok := <-w.ch:
					if !ok {
						return
					}
					if err := state.append(rec); err != nil {
						w.setErr(err)
						return
					}
				default:
					return
				}
			}
		case rec, ok := <-w.ch:
			if !ok {
				return
			}
			if err := state.append(rec); err != nil {
				w.setErr(err)
				return
			}
		case <-flushC:
			if err := state.flush(); err != nil {
				w.setErr(err)
				return
			}
		case <-syncC:
			if err := state.sync(); err != nil {
				w.setErr(err)
				return
			}
		}
	}
}

func (w *Writer) setErr(err error) {
	if err == nil {
		return
	}
	if w.err.Load() != nil {
		return
	}
	w.err.Store(err)
}

// writerState is the run goroutine's private view: the open segment, the
// next segment index and one reusable encode buffer.
type writerState struct {
	cfg     Config
	seg     *segment
	nextSeg uint64
	scratch []byte
}

func (s *writerState) append(rec record) error {
	size := int64(recordHeaderSize + len(rec.payload) + recordChecksumSize)
	if s.seg == nil || s.seg.written+size > s.cfg.SegmentMaxBytes {
		if err := s.rotate(); err != nil {
			return err
		}
	}

	buf := s.scratch[:recordHeaderSize]
	encodeHeader(buf, rec.header, len(rec.payload))
	buf = append(buf, rec.payload...)
	var crc [recordChecksumSize]byte
	binary.LittleEndian.PutUint32(crc[:], checksum(buf[:recordHeaderSize], rec.payload))
	buf = append(buf, crc[:]...)

	return s.seg.write(buf)
}

// rotate closes the open segment and starts the next one. Segment names
// are sequential, so lexical order is replay order.
func (s *writerState) rotate() error {
	if err := s.close(); err != nil {
		return err
	}
	for {
		s.nextSeg++
		name := fmt.Sprintf("%s-%08d.evt", s.cfg.FilePrefix, s.nextSeg)
		file, err := os.OpenFile(filepath.Join(s.cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return err
		}
		s.seg = &segment{file: file, buf: bufio.NewWriterSize(file, s.cfg.BufferSize)}
		return nil
	}
}

func (s *writerState) flush() error {
	if s.seg == nil {
		return nil
	}
	return s.seg.buf.Flush()
}

func (s *writerState) sync() error {
	if s.seg == nil {
		return nil
	}
	if err := s.seg.buf.Flush(); err != nil {
		return err
	}
	return s.seg.file.Sync()
}

func (s *writerState) close() error {
	if s.seg == nil {
		return nil
	}
	seg := s.seg
	s.seg = nil
	if err := seg.buf.Flush(); err != nil {
		_ = seg.file.Close()
		return err
	}
	if err := seg.file.Sync(); err != nil {
		_ = seg.file.Close()
		return err
	}
	return seg.file.Close()
}

type segment struct {
	file    *os.File
	buf     *bufio.Writer
	written int64
}

func (s *segment) write(b []byte) error {
	n, err := s.buf.Write(b)
	s.written += int64(n)
	return err
}
