package types

// Envelope is the ingress contract: a record pulled from the
// external log, not yet decoded into a typed Element.
type Envelope struct {
	Key             string
	Offset          int64
	PayloadBytes    []byte
	AppendTimestamp *int64 // optional, set by transport when configured for log-append time
	SourceStream    string // the stream this envelope was read from, for the decode-time name check
}

// OutputEnvelope is the egress contract: a stream element ready
// to publish, paired with the output stream name it targets.
type OutputEnvelope struct {
	StreamName string
	Key        string
	Bytes      []byte
}
