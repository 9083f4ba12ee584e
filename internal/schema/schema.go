package schema

// SchemaVersion is the current event schema version.
const SchemaVersion uint16 = 1

// EventType defines the category of an event flowing through the engine.
type EventType uint16

const (
	EventUnknown EventType = iota
	EventMarketData
	EventSignal
	EventFill
	EventOrderAck
	EventEndOfStream
	// EventEndOfDay marks a session boundary. The engine settles open
	// futures P&L against the day's last mark when it arrives.
	EventEndOfDay
)

// EventSource identifies where an event entered the engine.
type EventSource uint16

const (
	SourceUnknown EventSource = iota
	SourceHistorical
	SourceLiveFeed
	SourceBrokerCallback
	SourceStrategy
)

// EventHeader is the common metadata attached to every event.
// Seq is assigned by the ingress queue in arrival order, not business time.
type EventHeader struct {
	Type         EventType
	Version      uint16
	Source       EventSource
	Flags        uint16
	Seq          uint64
	InstrumentID InstrumentID
	TsEvent      int64
	TsRecv       int64
}

// NewHeader builds a header with the current schema version.
func NewHeader(eventType EventType, source EventSource, instrumentID InstrumentID, seq uint64, tsEvent, tsRecv int64) EventHeader {
	return EventHeader{
		Type:         eventType,
		Version:      SchemaVersion,
		Source:       source,
		Seq:          seq,
		InstrumentID: instrumentID,
		TsEvent:      tsEvent,
		TsRecv:       tsRecv,
	}
}
