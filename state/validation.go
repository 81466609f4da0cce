package state

import (
	"fmt"
)

func NodeConfigValidator(node *LocalCfg) error {
	if !node.Bind.IsValid() {
		return fmt.Errorf("node.Bind is invalid")
	}
	return nil
}

func CentralConfigValidator(cfg *CentralCfg) error {
	seen := make(map[NodeId]struct{})
	for _, node := range cfg.Nodes {
		if _, ok := seen[node.Id]; ok {
			return fmt.Errorf("duplicate node id: %d", node.Id)
		}
		seen[node.Id] = struct{}{}
		if !node.Bind.IsValid() {
			return fmt.Errorf("node %d has an invalid bind address", node.Id)
		}
	}
	if cfg.HelloInterval < 0 {
		return fmt.Errorf("hello_interval must not be negative")
	}
	if cfg.StalenessFactor < 0 {
		return fmt.Errorf("staleness_factor must not be negative")
	}
	if cfg.LearningRate < 0 || cfg.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be within [0, 1]")
	}
	if cfg.DiscountFactor < 0 || cfg.DiscountFactor > 1 {
		return fmt.Errorf("discount_factor must be within [0, 1]")
	}
	if cfg.EnergyWeight < 0 || cfg.EnergyWeight > 1 {
		return fmt.Errorf("energy_weight must be within [0, 1]")
	}
	return nil
}
