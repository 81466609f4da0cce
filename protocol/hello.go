// Package protocol defines the wire encoding of gsqr control messages.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HelloSize is the fixed serialized size of a Hello beacon.
const HelloSize = 36

var ErrShortHello = errors.New("hello packet too short")

// Hello is the periodic discovery beacon. Layout is fixed, network byte
// order: u32 node id followed by four float64 fields transmitted as their
// IEEE-754 bit patterns. The bit pattern is reinterpreted, never cast, so
// values round-trip exactly.
type Hello struct {
	NodeId         uint32
	Timestamp      float64
	MeanETX        float64
	ResidualEnergy float64
	QueueLength    float64
}

func (h *Hello) AppendBinary(b []byte) ([]byte, error) {
	b = binary.BigEndian.AppendUint32(b, h.NodeId)
	for _, f := range [...]float64{h.Timestamp, h.MeanETX, h.ResidualEnergy, h.QueueLength} {
		b = binary.BigEndian.AppendUint64(b, math.Float64bits(f))
	}
	return b, nil
}

func (h *Hello) MarshalBinary() ([]byte, error) {
	return h.AppendBinary(make([]byte, 0, HelloSize))
}

func (h *Hello) UnmarshalBinary(b []byte) error {
	if len(b) < HelloSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShortHello, len(b), HelloSize)
	}
	h.NodeId = binary.BigEndian.Uint32(b[0:4])
	h.Timestamp = math.Float64frombits(binary.BigEndian.Uint64(b[4:12]))
	h.MeanETX = math.Float64frombits(binary.BigEndian.Uint64(b[12:20]))
	h.ResidualEnergy = math.Float64frombits(binary.BigEndian.Uint64(b[20:28]))
	h.QueueLength = math.Float64frombits(binary.BigEndian.Uint64(b[28:36]))
	return nil
}

func (h *Hello) String() string {
	return fmt.Sprintf("Hello[node=%d ts=%g etx=%g energy=%g queue=%g]",
		h.NodeId, h.Timestamp, h.MeanETX, h.ResidualEnergy, h.QueueLength)
}
