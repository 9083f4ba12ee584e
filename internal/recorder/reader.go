package recorder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"main/internal/schema"
)

var ErrChecksumMismatch = errors.New("journal checksum mismatch")

// Reader decodes journal records sequentially from one segment stream.
// Every record is verified against its checksum.
type Reader struct {
	r      *bufio.Reader
	header []byte
	body   []byte
}

// NewReader wraps an io.Reader with journal decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:      bufio.NewReader(r),
		header: make([]byte, recordHeaderSize),
	}
}

// Next returns the next record header and payload, or io.EOF at a clean
// end of stream. The payload is only valid until the next call.
func (r *Reader) Next() (schema.EventHeader, []byte, error) {
	n, err := io.ReadFull(r.r, r.header)
	if err != nil {
		if err == io.EOF && n == 0 {
			return schema.EventHeader{}, nil, io.EOF
		}
		return schema.EventHeader{}, nil, err
	}

	header, payloadLen, err := decodeRecordHeader(r.header)
	if err != nil {
		return header, nil, err
	}
	if payloadLen > maxRecordPayload {
		return header, nil, ErrPayloadTooLarge
	}

	// Payload and trailing checksum are read in one pass.
	need := int(payloadLen) + recordChecksumSize
	if cap(r.body) < need {
		r.body = make([]byte, need)
	}
	r.body = r.body[:need]
	if _, err := io.ReadFull(r.r, r.body); err != nil {
		return header, nil, err
	}

	payload := r.body[:payloadLen]
	expected := binary.LittleEndian.Uint32(r.body[payloadLen:])
	if checksum(r.header, payload) != expected {
		return header, nil, ErrChecksumMismatch
	}
	return header, payload, nil
}
