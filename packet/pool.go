// Package packet implements the MQTT v5.0 wire codec: fixed-header framing,
// variable byte integers, the property list, and the sixteen control packets.
package packet

import (
	"bytes"
	"sync"
)

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// GetBuffer returns a reset buffer from the pool, grounded on the MQTT wire
// encoder's habit of building a packet in memory before writing it in one
// shot to the connection.
func GetBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// PutBuffer returns buf to the pool. buf must not be referenced afterwards;
// callers that hand a decoded view back to another goroutine must copy out
// of it first (see session.HandleInboundPublish).
func PutBuffer(buf *bytes.Buffer) {
	buf.Reset()
	bufferPool.Put(buf)
}
