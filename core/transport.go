package core

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"slices"

	"github.com/ethan-al/gsqr/state"
)

// PacketHandler is invoked on the main loop for every received payload.
type PacketHandler func(s *state.State, payload []byte, from netip.AddrPort)

// Transport broadcasts opaque payloads to all reachable peers. A reader
// goroutine may receive off the wire, but payloads are always handed back
// through the dispatch channel.
type Transport interface {
	Open(env *state.Env) error
	Broadcast(b []byte) (int, error)
	SetHandler(h PacketHandler)
	Close() error
}

// UdpTransport is the live broadcast transport, one socket per agent.
type UdpTransport struct {
	bind    netip.AddrPort
	conn    *net.UDPConn
	handler PacketHandler
}

func NewUdpTransport(bind netip.AddrPort) *UdpTransport {
	return &UdpTransport{bind: bind}
}

func (t *UdpTransport) SetHandler(h PacketHandler) {
	t.handler = h
}

func (t *UdpTransport) Open(env *state.Env) error {
	if t.conn != nil {
		return nil
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{
		IP:   t.bind.Addr().AsSlice(),
		Port: int(t.bind.Port()),
	})
	if err != nil {
		return fmt.Errorf("cannot bind hello socket: %w", err)
	}
	t.conn = conn
	env.Log.Info("hello socket bound", "addr", conn.LocalAddr())
	go t.readLoop(env)
	return nil
}

func (t *UdpTransport) Broadcast(b []byte) (int, error) {
	if t.conn == nil {
		return 0, errors.New("hello socket not open")
	}
	return t.conn.WriteToUDP(b, &net.UDPAddr{
		IP:   net.IPv4bcast,
		Port: int(t.bind.Port()),
	})
}

func (t *UdpTransport) readLoop(env *state.Env) {
	buf := make([]byte, 1500)
	for {
		n, from, err := t.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				env.Log.Warn("hello socket read failed", "err", err)
			}
			return
		}
		payload := slices.Clone(buf[:n])
		env.Dispatch(func(s *state.State) error {
			if t.handler != nil {
				t.handler(s, payload, from)
			}
			return nil
		})
	}
}

func (t *UdpTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
