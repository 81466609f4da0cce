package state

import "time"

const (
	// EmbeddingDim is fixed by the layout of the offline trainer's output
	// file, one row per node: id, 16 components, bias.
	EmbeddingDim = 16

	// HelloPort is the UDP port Hello beacons are broadcast on.
	HelloPort = 6543
)

var (
	DefaultHelloInterval   = 2.0 // seconds of simulated time
	DefaultStalenessFactor = 3.0
	DefaultLearningRate    = 0.1  // alpha
	DefaultDiscountFactor  = 0.9  // gamma
	DefaultEnergyWeight    = 0.01 // lambda

	// HelloStartDelay staggers the first beacon after activation so a
	// freshly started network does not burst in lockstep.
	HelloStartDelay = time.Millisecond * 500
	GcDelay         = time.Second * 1
	TelemetryDelay  = time.Second * 5

	// link features advertised before any measurement has been taken
	DefaultMeanETX        = 1.0
	DefaultResidualEnergy = 1.0
	DefaultQueueLength    = 0.0
)
