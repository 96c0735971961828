package telemetry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/persistence"
)

// SimulationInterval is the pace of simulated readings.
const SimulationInterval = 5 * time.Second

// Simulator produces a random reading for a random registered detector on
// every tick.
type Simulator struct {
	sink   ReadingSink
	lister EquipmentLister
	now    func() time.Time
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator builds a simulator. A nil rng seeds from the runtime.
func NewSimulator(sink ReadingSink, lister EquipmentLister, rng *rand.Rand, now func() time.Time, logger *slog.Logger) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		sink:   sink,
		lister: lister,
		now:    now,
		logger: logger.With(slog.String("component", "telemetry.Simulator")),
		rng:    rng,
	}
}

// Tick emits one reading. It reports false when no equipment is registered.
func (s *Simulator) Tick(ctx context.Context) (persistence.Reading, bool, error) {
	equipment, err := s.lister.ListEquipment(ctx, application.EquipmentFilter{})
	if err != nil {
		s.logger.Warn("simulation skipped", slog.String("error", err.Error()))
		return persistence.Reading{}, false, err
	}
	if len(equipment) == 0 {
		return persistence.Reading{}, false, nil
	}

	s.mu.Lock()
	target := equipment[s.rng.IntN(len(equipment))]
	level := float64(s.rng.IntN(100))
	s.mu.Unlock()

	reading, err := s.sink.IngestReading(ctx, target.ID, level, s.now())
	if err != nil {
		s.logger.Warn("simulated reading rejected",
			slog.String("equipment_id", target.ID),
			slog.String("error", err.Error()),
			slog.String("error_kind", application.ErrorKind(err)),
		)
		return persistence.Reading{}, false, err
	}
	return reading, true, nil
}

// Run adapts Tick to a periodic task callback.
func (s *Simulator) Run(ctx context.Context) {
	_, _, _ = s.Tick(ctx)
}
