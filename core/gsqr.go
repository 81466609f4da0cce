package core

import (
	"fmt"
	"io"
	"net/netip"

	"github.com/ethan-al/gsqr/protocol"
	"github.com/ethan-al/gsqr/state"
)

// LinkFeatures are the local link metrics advertised in Hello beacons.
type LinkFeatures struct {
	MeanETX        float64
	ResidualEnergy float64
	QueueLength    float64
}

// Gsqr is the per-node protocol agent. It owns the Hello broadcast cycle,
// routes inbound beacons into the neighbour table and exposes control
// traffic counters to the experiment harness.
type Gsqr struct {
	*state.State
	Transport Transport

	features   LinkFeatures
	helloArmed bool
	active     bool

	packetsSent uint32
	bytesSent   uint64
}

func (g *Gsqr) Init(s *state.State) error {
	s.Log.Debug("init gsqr")
	g.State = s
	g.features = LinkFeatures{
		MeanETX:        state.DefaultMeanETX,
		ResidualEnergy: state.DefaultResidualEnergy,
		QueueLength:    state.DefaultQueueLength,
	}
	s.Neighbours = state.NewNeighbourTable(s.NeighbourTTL())
	if g.Transport == nil {
		bind := g.LocalCfg.Bind
		if node := s.TryGetNode(s.LocalCfg.Id); !bind.IsValid() && node != nil {
			bind = node.Bind
		}
		g.Transport = NewUdpTransport(bind)
	}
	g.Transport.SetHandler(g.handlePacket)

	s.Env.RepeatTask(gsqrGc, state.GcDelay)

	// a live interface is assumed up from the start; a harness driving
	// interface state calls NotifyInterfaceUp itself
	g.NotifyInterfaceUp(s)
	return nil
}

func (g *Gsqr) Cleanup(s *state.State) error {
	if g.Transport != nil {
		return g.Transport.Close()
	}
	return nil
}

// NotifyInterfaceUp moves the agent from Idle to Active. Safe to call more
// than once; the Hello timer is never double-armed.
func (g *Gsqr) NotifyInterfaceUp(s *state.State) {
	g.StartHello(s)
}

// StartHello arms the periodic beacon. Re-arming is idempotent.
func (g *Gsqr) StartHello(s *state.State) {
	if g.helloArmed {
		return
	}
	g.helloArmed = true
	s.Env.ScheduleTask(g.sendHello, state.HelloStartDelay)
}

// sendHello broadcasts one beacon and re-arms the timer. Failures are
// logged and skipped; the cycle always continues.
func (g *Gsqr) sendHello(s *state.State) error {
	defer s.Env.ScheduleTask(g.sendHello, s.HelloTick())

	if !g.active {
		if err := g.Transport.Open(s.Env); err != nil {
			s.Log.Warn("cannot send hello, socket not ready", "err", err)
			return nil
		}
		g.active = true
	}

	hello := protocol.Hello{
		NodeId:         uint32(s.LocalCfg.Id),
		Timestamp:      s.Now(),
		MeanETX:        g.features.MeanETX,
		ResidualEnergy: g.features.ResidualEnergy,
		QueueLength:    g.features.QueueLength,
	}
	payload, err := hello.MarshalBinary()
	if err != nil {
		return err
	}

	if _, err := g.Transport.Broadcast(payload); err != nil {
		s.Log.Warn("failed to send hello", "err", err)
		return nil
	}
	g.packetsSent++
	g.bytesSent += uint64(len(payload))
	if t, ok := TryGet[*Telemetry](s); ok {
		t.ControlPackets.Inc()
		t.ControlBytes.Add(float64(len(payload)))
	}
	s.Log.Debug("sent hello", "packets", g.packetsSent, "bytes", g.bytesSent)
	return nil
}

// handlePacket decodes an inbound beacon and upserts the neighbour table.
func (g *Gsqr) handlePacket(s *state.State, payload []byte, from netip.AddrPort) {
	hello := protocol.Hello{}
	if err := hello.UnmarshalBinary(payload); err != nil {
		s.Log.Warn("dropping malformed hello", "from", from, "err", err)
		return
	}
	sender := state.NodeId(hello.NodeId)
	if sender == s.LocalCfg.Id {
		// our own broadcast echoed back
		return
	}
	s.Neighbours.Upsert(state.NeighbourRecord{
		Id:             sender,
		LastSeen:       s.Now(),
		MeanETX:        hello.MeanETX,
		ResidualEnergy: hello.ResidualEnergy,
		QueueLength:    hello.QueueLength,
		Via:            from,
	})
	s.Log.Debug("received hello", "from", sender, "via", from, "etx", hello.MeanETX)
}

// SetLinkFeatures replaces the metrics advertised in subsequent beacons.
func (g *Gsqr) SetLinkFeatures(f LinkFeatures) {
	g.features = f
}

func (g *Gsqr) ControlPacketsSent() uint32 {
	return g.packetsSent
}

func (g *Gsqr) ControlBytesSent() uint64 {
	return g.bytesSent
}

// DumpNeighbours writes the neighbour table in a human readable form.
func (g *Gsqr) DumpNeighbours(s *state.State, w io.Writer) {
	fmt.Fprintf(w, "GSQR neighbour table for node %d\n", s.LocalCfg.Id)
	for _, id := range s.Neighbours.Ids() {
		rec, ok := s.Neighbours.Get(id)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %d last-seen=%.3fs etx=%g energy=%g queue=%g via=%s\n",
			rec.Id, rec.LastSeen, rec.MeanETX, rec.ResidualEnergy, rec.QueueLength, rec.Via)
	}
}

func gsqrGc(s *state.State) error {
	if s.Neighbours == nil {
		return nil
	}
	if removed := s.Neighbours.Sweep(s.Now()); removed > 0 {
		s.Log.Debug("evicted stale neighbours", "count", removed)
	}
	return nil
}
