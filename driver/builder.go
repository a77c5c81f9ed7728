package driver

import (
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
)

// Builder creates a new instance of Driver.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq
	sink   Sink
	logger *slog.Logger

	dump   bool
	verify bool
	trials int
	seed   int64
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the driver.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithSink sets the sink that receives every result.
func (b Builder) WithSink(sink Sink) Builder {
	b.sink = sink
	return b
}

// WithLogger sets the logger handed to every graph.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithDump keeps a node table of every graph in its result.
func (b Builder) WithDump(dump bool) Builder {
	b.dump = dump
	return b
}

// WithVerify checks every optimized block against the original on the given
// number of seeded trials. A block that fails the check is not rewritten.
func (b Builder) WithVerify(trials int, seed int64) Builder {
	b.verify = trials > 0
	b.trials = trials
	b.seed = seed
	return b
}

// Build creates a driver.
func (b Builder) Build(name string) Driver {
	if b.engine == nil {
		b.engine = sim.NewSerialEngine()
	}
	if b.freq == 0 {
		b.freq = 1 * sim.GHz
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	d := &driverImpl{
		sink:   b.sink,
		logger: b.logger,
		dump:   b.dump,
		verify: b.verify,
		trials: b.trials,
		seed:   b.seed,
	}

	d.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, d)

	return d
}
