package state

import (
	"net/netip"
	"slices"
	"time"
)

// NodeCfg is the central roster entry for a single node.
type NodeCfg struct {
	Id   NodeId
	Bind netip.AddrPort
}

// CentralCfg is the network-wide configuration shared by every node.
type CentralCfg struct {
	Nodes []NodeCfg

	// protocol tunables, zero means "use default"
	HelloInterval   float64 `yaml:"hello_interval,omitempty"`   // seconds
	StalenessFactor float64 `yaml:"staleness_factor,omitempty"` // multiples of hello_interval
	LearningRate    float64 `yaml:"learning_rate,omitempty"`    // alpha
	DiscountFactor  float64 `yaml:"discount_factor,omitempty"`  // gamma
	EnergyWeight    float64 `yaml:"energy_weight,omitempty"`    // lambda
}

// LocalCfg represents local node-level configuration
type LocalCfg struct {
	Id                NodeId
	Bind              netip.AddrPort
	EmbeddingPath     string         `yaml:"embedding_path,omitempty"`     // pre-trained embedding table (csv)
	PersistEmbeddings bool           `yaml:"persist_embeddings,omitempty"` // write learned embeddings back on shutdown
	LogPath           string         `yaml:"log_path,omitempty"`           // if not empty, gsqr will also write to this file
	MetricsBind       string         `yaml:"metrics_bind,omitempty"`       // prometheus listen address, disabled when empty
}

// ExpandCentralConfig fills unset tunables with their defaults.
func ExpandCentralConfig(cfg *CentralCfg) {
	if cfg.HelloInterval == 0 {
		cfg.HelloInterval = DefaultHelloInterval
	}
	if cfg.StalenessFactor == 0 {
		cfg.StalenessFactor = DefaultStalenessFactor
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = DefaultLearningRate
	}
	if cfg.DiscountFactor == 0 {
		cfg.DiscountFactor = DefaultDiscountFactor
	}
	if cfg.EnergyWeight == 0 {
		cfg.EnergyWeight = DefaultEnergyWeight
	}
}

func (c *CentralCfg) TryGetNode(id NodeId) *NodeCfg {
	idx := slices.IndexFunc(c.Nodes, func(n NodeCfg) bool {
		return n.Id == id
	})
	if idx == -1 {
		return nil
	}
	return &c.Nodes[idx]
}

// HelloTick converts the configured hello interval to a scheduler delay.
func (c *CentralCfg) HelloTick() time.Duration {
	return time.Duration(c.HelloInterval * float64(time.Second))
}

// NeighbourTTL is how long a neighbour stays live without a Hello.
func (c *CentralCfg) NeighbourTTL() time.Duration {
	return time.Duration(c.StalenessFactor * c.HelloInterval * float64(time.Second))
}
