package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethan-al/gsqr/protocol"
	"github.com/ethan-al/gsqr/state"
)

// stubTransport records broadcasts without a network. Cross-node delivery
// is covered by the mock package tests.
type stubTransport struct {
	open      bool
	failSends bool
	sent      [][]byte
}

func (t *stubTransport) Open(env *state.Env) error { t.open = true; return nil }
func (t *stubTransport) SetHandler(h PacketHandler) {}
func (t *stubTransport) Close() error              { t.open = false; return nil }
func (t *stubTransport) Broadcast(b []byte) (int, error) {
	if t.failSends {
		return 0, errors.New("send failure")
	}
	t.sent = append(t.sent, bytes.Clone(b))
	return len(b), nil
}

func newTestAgent(t *testing.T) (*Gsqr, *stubTransport, chan func(*state.State) error) {
	t.Helper()
	ctx, cancel := context.WithCancelCause(context.Background())
	t.Cleanup(func() { cancel(context.Canceled) })

	// keep the gc loop short-lived once the context goes away
	origGc, origTel := state.GcDelay, state.TelemetryDelay
	state.GcDelay, state.TelemetryDelay = 10*time.Millisecond, 10*time.Millisecond
	t.Cleanup(func() { state.GcDelay, state.TelemetryDelay = origGc, origTel })

	ccfg := state.CentralCfg{}
	state.ExpandCentralConfig(&ccfg)
	dispatch := make(chan func(*state.State) error, 64)
	clock := &state.ManualClock{}
	s := &state.State{
		Modules: make(map[string]state.GsqrModule),
		Env: &state.Env{
			DispatchChannel: dispatch,
			CentralCfg:      ccfg,
			LocalCfg:        state.LocalCfg{Id: 1},
			Context:         ctx,
			Cancel:          cancel,
			Log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
			Clock:           clock,
		},
	}

	tr := &stubTransport{}
	g := &Gsqr{Transport: tr}
	s.Modules["*core.Gsqr"] = g
	require.NoError(t, g.Init(s))
	return g, tr, dispatch
}

func TestSendHelloCountsSuccess(t *testing.T) {
	g, tr, _ := newTestAgent(t)

	require.NoError(t, g.sendHello(g.State))
	require.NoError(t, g.sendHello(g.State))

	assert.Equal(t, uint32(2), g.ControlPacketsSent())
	assert.Equal(t, uint64(2*protocol.HelloSize), g.ControlBytesSent())
	require.Len(t, tr.sent, 2)

	var hello protocol.Hello
	require.NoError(t, hello.UnmarshalBinary(tr.sent[0]))
	assert.Equal(t, uint32(1), hello.NodeId)
	assert.Equal(t, state.DefaultMeanETX, hello.MeanETX)
	assert.Equal(t, state.DefaultResidualEnergy, hello.ResidualEnergy)
	assert.Equal(t, state.DefaultQueueLength, hello.QueueLength)
}

func TestSendHelloFailureSkipsCounters(t *testing.T) {
	g, tr, _ := newTestAgent(t)
	tr.failSends = true

	// a broadcast failure is not a dispatch error, the cycle continues
	require.NoError(t, g.sendHello(g.State))
	assert.Zero(t, g.ControlPacketsSent())
	assert.Zero(t, g.ControlBytesSent())

	tr.failSends = false
	require.NoError(t, g.sendHello(g.State))
	assert.Equal(t, uint32(1), g.ControlPacketsSent())
	assert.Equal(t, uint64(protocol.HelloSize), g.ControlBytesSent())
}

func TestSendHelloCarriesLinkFeatures(t *testing.T) {
	g, tr, _ := newTestAgent(t)
	g.SetLinkFeatures(LinkFeatures{MeanETX: 2.5, ResidualEnergy: 0.4, QueueLength: 7})
	g.Clock.(*state.ManualClock).Advance(3.5)

	require.NoError(t, g.sendHello(g.State))
	var hello protocol.Hello
	require.NoError(t, hello.UnmarshalBinary(tr.sent[0]))
	assert.Equal(t, 3.5, hello.Timestamp)
	assert.Equal(t, 2.5, hello.MeanETX)
	assert.Equal(t, 0.4, hello.ResidualEnergy)
	assert.Equal(t, 7.0, hello.QueueLength)
}

func TestHandlePacketUpserts(t *testing.T) {
	g, _, _ := newTestAgent(t)
	g.Clock.(*state.ManualClock).Advance(1.5)
	from := netip.MustParseAddrPort("10.0.0.2:6543")

	hello := protocol.Hello{NodeId: 2, Timestamp: 1.0, MeanETX: 1.2, ResidualEnergy: 0.8, QueueLength: 3}
	payload, err := hello.MarshalBinary()
	require.NoError(t, err)
	g.handlePacket(g.State, payload, from)

	rec, ok := g.Neighbours.Get(2)
	require.True(t, ok)
	// LastSeen is receiver time, not the sender's timestamp
	assert.Equal(t, 1.5, rec.LastSeen)
	assert.Equal(t, 1.2, rec.MeanETX)
	assert.Equal(t, 0.8, rec.ResidualEnergy)
	assert.Equal(t, 3.0, rec.QueueLength)
	assert.Equal(t, from, rec.Via)
}

func TestHandlePacketIgnoresOwnEcho(t *testing.T) {
	g, _, _ := newTestAgent(t)
	hello := protocol.Hello{NodeId: uint32(g.LocalCfg.Id)}
	payload, err := hello.MarshalBinary()
	require.NoError(t, err)
	g.handlePacket(g.State, payload, netip.MustParseAddrPort("10.0.0.1:6543"))
	assert.Zero(t, g.Neighbours.Len())
}

func TestHandlePacketDropsMalformed(t *testing.T) {
	g, _, _ := newTestAgent(t)
	g.handlePacket(g.State, []byte{1, 2, 3}, netip.MustParseAddrPort("10.0.0.2:6543"))
	assert.Zero(t, g.Neighbours.Len())
}

func TestStartHelloIdempotent(t *testing.T) {
	orig := state.HelloStartDelay
	state.HelloStartDelay = time.Millisecond
	t.Cleanup(func() { state.HelloStartDelay = orig })

	g, _, dispatch := newTestAgent(t)
	// Init already armed the timer; further notifications must not
	// double-arm it
	g.NotifyInterfaceUp(g.State)
	g.NotifyInterfaceUp(g.State)

	time.Sleep(50 * time.Millisecond)
	// run everything queued; the gc and telemetry tasks are in here too,
	// so only the packet counter tells us how many hello timers fired
	for {
		select {
		case fun := <-dispatch:
			require.NoError(t, fun(g.State))
			continue
		default:
		}
		break
	}
	assert.Equal(t, uint32(1), g.ControlPacketsSent())
}

func TestDumpNeighbours(t *testing.T) {
	g, _, _ := newTestAgent(t)
	g.Neighbours.Upsert(state.NeighbourRecord{
		Id: 2, LastSeen: 1.5, MeanETX: 1.2, ResidualEnergy: 0.8, QueueLength: 3,
		Via: netip.MustParseAddrPort("10.0.0.2:6543"),
	})

	var buf bytes.Buffer
	g.DumpNeighbours(g.State, &buf)
	out := buf.String()
	assert.Contains(t, out, "node 1")
	assert.Contains(t, out, "etx=1.2")
	assert.Contains(t, out, "via=10.0.0.2:6543")
}

func TestGcSweepsStaleNeighbours(t *testing.T) {
	g, _, _ := newTestAgent(t)
	// default staleness is 3 x 2s of hello interval
	g.Neighbours.Upsert(state.NeighbourRecord{Id: 2, LastSeen: 0})

	require.NoError(t, gsqrGc(g.State))
	assert.Equal(t, 1, g.Neighbours.Len())

	g.Clock.(*state.ManualClock).Advance(10)
	// still visible before the sweep runs
	_, ok := g.Neighbours.Get(2)
	assert.True(t, ok)
	require.NoError(t, gsqrGc(g.State))
	assert.Zero(t, g.Neighbours.Len())
}
