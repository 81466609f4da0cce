// Package mock provides an in-memory broadcast network for tests. Every
// attached link hears every other link's broadcasts; delivery happens
// through each receiver's dispatch channel, like the live transport.
package mock

import (
	"errors"
	"net/netip"
	"slices"
	"sync"

	"github.com/ethan-al/gsqr/core"
	"github.com/ethan-al/gsqr/state"
)

type Network struct {
	mu    sync.Mutex
	links []*Link
}

func NewNetwork() *Network {
	return &Network{}
}

// Attach creates a link on the network with the given fake address.
func (n *Network) Attach(addr netip.AddrPort) *Link {
	n.mu.Lock()
	defer n.mu.Unlock()
	l := &Link{net: n, addr: addr}
	n.links = append(n.links, l)
	return l
}

// Link implements core.Transport over the in-memory network.
type Link struct {
	net  *Network
	addr netip.AddrPort

	mu      sync.Mutex
	env     *state.Env
	handler core.PacketHandler
	open    bool
	sent    [][]byte

	// FailSends makes every Broadcast report an error without delivering.
	// Set before the owning node starts; reads are not synchronized.
	FailSends bool
	// Partitioned drops traffic in both directions without erroring.
	// Set before the owning node starts; reads are not synchronized.
	Partitioned bool
}

func (l *Link) SetHandler(h core.PacketHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

func (l *Link) Open(env *state.Env) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.env = env
	l.open = true
	return nil
}

func (l *Link) Broadcast(b []byte) (int, error) {
	l.mu.Lock()
	if !l.open {
		l.mu.Unlock()
		return 0, errors.New("mock link not open")
	}
	if l.FailSends {
		l.mu.Unlock()
		return 0, errors.New("mock link send failure")
	}
	l.sent = append(l.sent, slices.Clone(b))
	l.mu.Unlock()
	if l.Partitioned {
		return len(b), nil
	}

	l.net.mu.Lock()
	peers := slices.Clone(l.net.links)
	l.net.mu.Unlock()
	for _, peer := range peers {
		if peer == l || peer.Partitioned {
			continue
		}
		peer.mu.Lock()
		open, handler, env := peer.open, peer.handler, peer.env
		peer.mu.Unlock()
		if !open || handler == nil {
			continue
		}
		payload := slices.Clone(b)
		from := l.addr
		env.Dispatch(func(s *state.State) error {
			handler(s, payload, from)
			return nil
		})
	}
	return len(b), nil
}

func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open = false
	return nil
}

// Addr returns the fake transport address of this link.
func (l *Link) Addr() netip.AddrPort {
	return l.addr
}

// Sent returns a snapshot of every payload this link has broadcast.
func (l *Link) Sent() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.sent)
}
