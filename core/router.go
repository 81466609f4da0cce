package core

import (
	"slices"

	"github.com/ethan-al/gsqr/state"
)

// GsqrRouter scores candidate next hops with a bilinear form over node
// embeddings and adapts the embeddings online from delivery feedback.
type GsqrRouter struct {
	*state.State
	// lists holds the forwarding neighbour list per node, set by the
	// topology layer. Order matters: it breaks score ties.
	lists map[state.NodeId][]state.NodeId
}

func (r *GsqrRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	r.lists = make(map[state.NodeId][]state.NodeId)
	s.Embeddings = state.NewEmbeddingStore()
	if s.EmbeddingPath != "" {
		n, err := s.Embeddings.LoadFile(s.EmbeddingPath)
		if err != nil {
			s.Log.Warn("could not load embedding table", "path", s.EmbeddingPath, "err", err)
		} else {
			s.Log.Info("loaded embedding table", "path", s.EmbeddingPath, "entries", n)
		}
	}
	return nil
}

func (r *GsqrRouter) Cleanup(s *state.State) error {
	if s.PersistEmbeddings && s.EmbeddingPath != "" {
		n, err := s.Embeddings.SaveFile(s.EmbeddingPath)
		if err != nil {
			s.Log.Warn("could not persist embedding table", "path", s.EmbeddingPath, "err", err)
		} else {
			s.Log.Info("persisted embedding table", "path", s.EmbeddingPath, "entries", n)
		}
	}
	r.State = nil
	r.lists = nil
	return nil
}

// Score estimates the routing value of forwarding toward dest through
// neigh: dot(h_dest, h_neigh) + bias_neigh. Unknown ids score with the
// zero vector.
func (r *GsqrRouter) Score(dest, neigh state.NodeId) float64 {
	hd, _ := r.Embeddings.Get(dest)
	hn, bn := r.Embeddings.Get(neigh)
	return DotProduct(hd, hn) + bn
}

// UpdateNeighbourList replaces the forwarding neighbour list for node.
func (r *GsqrRouter) UpdateNeighbourList(node state.NodeId, neighbours []state.NodeId) {
	r.lists[node] = slices.Clone(neighbours)
}

func (r *GsqrRouter) NeighbourList(node state.NodeId) []state.NodeId {
	return r.lists[node]
}

// SelectNextHop greedily picks the neighbour of cur with the highest
// score toward dest. Ties go to the earliest list position. When cur has
// no neighbour list, cur itself is returned; callers must treat a
// returned id equal to cur as "no route", not as a hop.
func (r *GsqrRouter) SelectNextHop(dest, cur state.NodeId) state.NodeId {
	list := r.lists[cur]
	if len(list) == 0 {
		r.Log.Warn("no neighbours for node", "node", cur)
		return cur
	}
	best := list[0]
	bestQ := r.Score(dest, best)
	for _, n := range list[1:] {
		if q := r.Score(dest, n); q > bestQ {
			best, bestQ = n, q
		}
	}
	r.Log.Debug("selected next hop", "dest", dest, "cur", cur, "nh", best, "q", bestQ)
	return best
}

// ReceiveAck folds measured delay and energy for a step taken via neigh
// toward dest into the embeddings. This is a one-step update: the
// downstream continuation value is not tracked, so the bootstrap term is
// always zero.
func (r *GsqrRouter) ReceiveAck(neigh, dest state.NodeId, delay, energy float64) {
	reward := -delay - r.EnergyWeight*energy
	qCurrent := r.Score(dest, neigh)
	const qNextMax = 0.0
	tdError := reward + r.DiscountFactor*qNextMax - qCurrent

	// unlike Update, a missing embedding aborts here instead of
	// zero-creating one
	if !r.Embeddings.Contains(dest) || !r.Embeddings.Contains(neigh) {
		r.Log.Warn("cannot apply ack, embedding not found", "dest", dest, "neighbour", neigh)
		return
	}

	hd, _ := r.Embeddings.Get(dest)
	if err := r.Embeddings.Update(neigh, hd, r.LearningRate*tdError); err != nil {
		r.Log.Warn("ack update rejected", "neighbour", neigh, "err", err)
		return
	}
	r.Embeddings.UpdateBias(neigh, tdError, r.LearningRate)
	r.Log.Debug("applied ack update", "dest", dest, "neighbour", neigh, "td", tdError)
}
