package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kinema/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	topologyDivisor    = 8
)

// Particle content constants (GeV).
const (
	muonMass = 0.105658

	softPtMin   = 1.0
	softPtRange = 19.0
	hardPtMin   = 20.0
	hardPtRange = 80.0

	etaMax = 2.5
)

// Event topology cases. Multiplicities are chosen so the stream contains
// events below the subset size, typical events, and combinatoric-heavy tails.
const (
	caseEmptyEvent   = 0
	caseBelowCutoff  = 1
	caseExactQuad    = 2
	caseTypicalSmall = 3
	caseTypicalLarge = 4
	caseBusyEvent    = 5
	caseVeryBusy     = 6
	caseMixed        = 7
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, n) using crypto/rand.
func getRandomInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// generateEvents creates the specified number of events with unique ids.
func generateEvents(ctx context.Context, config *Config, stats *Stats) ([]Event, error) {
	logger.Get().Info(ctx, "generating collision events", logger.Int("numEvents", config.NumEvents))

	events := make([]Event, config.NumEvents)

	type eventResult struct {
		index int
		event Event
		err   error
	}

	resultChan := make(chan eventResult, config.NumEvents)

	workerCount := minInt(config.Workers, config.NumEvents)
	eventsPerWorker := config.NumEvents / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * eventsPerWorker
		end := start + eventsPerWorker
		if worker == workerCount-1 {
			end = config.NumEvents // Last worker gets remaining events
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- eventResult{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- eventResult{index: i, event: generateSingleEvent()}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumEvents; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during event generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate event %d: %w", result.index, result.err)
			}
			events[result.index] = result.event
		}
	}

	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated events successfully", logger.Int("count", len(events)))

	return events, nil
}

// generateSingleEvent creates one event with a varied particle multiplicity.
func generateSingleEvent() Event {
	n := generateMultiplicity()

	particles := make([]Particle, n)
	for i := range particles {
		particles[i] = generateParticle()
	}

	return Event{
		EventID:   "evt_" + uuid.New().String(),
		Run:       "loadgen",
		Particles: particles,
		TS:        time.Now().UTC().Format(time.RFC3339),
	}
}

// generateMultiplicity returns a particle count with a varied distribution.
func generateMultiplicity() int {
	switch getRandomInt(topologyDivisor) {
	case caseEmptyEvent:
		// No particles - must produce zero candidates
		return 0
	case caseBelowCutoff:
		// 1-3 particles, below the default subset size
		return 1 + int(getRandomInt(3))
	case caseExactQuad:
		// Exactly one quadruplet to enumerate
		return 4
	case caseTypicalSmall:
		// 5-6 particles
		return 5 + int(getRandomInt(2))
	case caseTypicalLarge:
		// 7-8 particles
		return 7 + int(getRandomInt(2))
	case caseBusyEvent:
		// 9-10 particles
		return 9 + int(getRandomInt(2))
	case caseVeryBusy:
		// 11-12 particles - combinatoric-heavy tail
		return 11 + int(getRandomInt(2))
	case caseMixed:
		// Anywhere in 0-12
		return int(getRandomInt(13))
	default:
		return 4
	}
}

// generateParticle returns a muon-like particle with random kinematics.
func generateParticle() Particle {
	pt := softPtMin + getRandomFloat()*softPtRange
	if getRandomInt(4) == 0 {
		// Occasional hard particle
		pt = hardPtMin + getRandomFloat()*hardPtRange
	}

	charge := 1
	if getRandomInt(2) == 0 {
		charge = -1
	}

	return Particle{
		Pt:     pt,
		Eta:    (getRandomFloat()*2 - 1) * etaMax,
		Phi:    (getRandomFloat()*2 - 1) * math.Pi,
		Charge: charge,
		Mass:   muonMass,
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
