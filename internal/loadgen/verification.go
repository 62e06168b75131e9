package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/kinema/internal/domain/combiner"
	"github.com/okian/kinema/internal/domain/model"
	"github.com/okian/kinema/pkg/logger"
)

const massTolerance = 1e-6

// verifyResults cross-checks a sample of submitted events against the
// service by recomputing their candidates locally.
func verifyResults(ctx context.Context, config *Config, events []Event, stats *Stats) error {
	sample := minInt(config.SampleSize, len(events))
	logger.Get().Info(ctx, "verifying candidates for sampled events", logger.Int("sample", sample))

	client := newHTTPClient(config.Timeout)
	comb := combiner.NewSubsetCombiner()

	expectedTotal := 0
	for i := 0; i < sample; i++ {
		event := events[i]

		local, err := comb.Combine(ctx, toModelEvent(event))
		if err != nil {
			return fmt.Errorf("local combination failed for %s: %w", event.EventID, err)
		}
		expectedTotal += len(local)

		remote, err := fetchEventCandidates(ctx, client, config.BaseURL, event.EventID)
		if err != nil {
			return err
		}

		stats.EventsVerified++
		if !candidatesMatch(local, remote) {
			stats.EventsMismatched++
			logger.Get().Warn(ctx, "candidate mismatch",
				logger.String("eventID", event.EventID),
				logger.Int("expected", len(local)),
				logger.Int("got", len(remote)),
			)
		}
	}

	stats.CandidatesExpected = expectedTotal

	if stats.EventsMismatched > 0 {
		return fmt.Errorf("%d of %d sampled events disagreed with local combination", stats.EventsMismatched, stats.EventsVerified)
	}

	logger.Get().Info(ctx, "verification passed",
		logger.Int("eventsVerified", stats.EventsVerified),
		logger.Int("candidatesExpected", stats.CandidatesExpected),
	)
	return nil
}

// fetchEventCandidates queries the per-event candidates endpoint.
// A 404 means the event produced no candidates, which is valid for
// low-multiplicity or charge-imbalanced events.
func fetchEventCandidates(ctx context.Context, client *HTTPClient, baseURL, eventID string) ([]Candidate, error) {
	resp, err := client.Get(ctx, baseURL+"/events/"+eventID+"/candidates")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates for %s: %w", eventID, err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates for %s: %w", eventID, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var out []Candidate
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("failed to decode candidates for %s: %w", eventID, err)
		}
		return out, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected status %d fetching candidates for %s", resp.StatusCode, eventID)
	}
}

// candidatesMatch compares local and remote candidates by id and mass.
func candidatesMatch(local []model.Candidate, remote []Candidate) bool {
	if len(local) != len(remote) {
		return false
	}
	byID := make(map[string]float64, len(remote))
	for _, c := range remote {
		byID[c.ID] = c.Mass
	}
	for _, c := range local {
		mass, ok := byID[c.ID]
		if !ok {
			return false
		}
		diff := mass - c.Mass
		if diff < -massTolerance || diff > massTolerance {
			return false
		}
	}
	return true
}

// toModelEvent converts the wire event to the domain shape.
func toModelEvent(e Event) model.Event {
	particles := make([]model.Particle, len(e.Particles))
	for i, p := range e.Particles {
		particles[i] = model.Particle{
			Pt:     p.Pt,
			Eta:    p.Eta,
			Phi:    p.Phi,
			Charge: p.Charge,
			Mass:   p.Mass,
		}
	}
	return model.Event{EventID: e.EventID, Run: e.Run, Particles: particles}
}
