package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/kinema/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// processingWaitTime gives workers time to drain the queue before
// verification queries run.
const processingWaitTime = 3 * time.Second

// Run executes the complete load run: generate, submit, verify.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting kinema load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("events", config.NumEvents),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("sampleSize", config.SampleSize),
		logger.Bool("verbose", config.Verbose),
	)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate events
	events, err := generateEvents(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("event generation failed: %w", err)
	}

	// Step 3: Submit events concurrently
	if err := submitEvents(ctx, config, events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	// Step 4: Wait for processing
	logger.Get().Info(ctx, "waiting for events to be processed")
	select {
	case <-ctx.Done():
		return fmt.Errorf("cancelled while waiting for processing: %w", ctx.Err())
	case <-time.After(processingWaitTime):
	}

	// Step 5: Verify a sample against local combination
	if err := verifyResults(ctx, config, events, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 6: Pull the full spectrum
	if err := fetchSpectrum(ctx, config, stats); err != nil {
		return fmt.Errorf("spectrum retrieval failed: %w", err)
	}

	// Step 7: Save events to file
	if err := saveEventsToFile(ctx, config, events); err != nil {
		logger.Get().Warn(ctx, "failed to save events to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "load run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// fetchSpectrum retrieves the default-grid histogram and records totals.
func fetchSpectrum(ctx context.Context, config *Config, stats *Stats) error {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/histogram")
	if err != nil {
		return fmt.Errorf("failed to fetch histogram: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read histogram: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("histogram request failed with status: %d", resp.StatusCode)
	}

	var hist Histogram
	if err := json.Unmarshal(body, &hist); err != nil {
		return fmt.Errorf("failed to decode histogram: %w", err)
	}

	stats.CandidatesIndexed = hist.Total

	logger.Get().Info(ctx, "mass spectrum retrieved",
		logger.Int("bins", hist.Bins),
		logger.Float64("min", hist.Min),
		logger.Float64("max", hist.Max),
		logger.Any("total", hist.Total),
		logger.Any("underflow", hist.Underflow),
		logger.Any("overflow", hist.Overflow),
	)
	return nil
}

// saveEventsToFile saves the generated events to a JSON file.
func saveEventsToFile(ctx context.Context, config *Config, events []Event) error {
	if len(events) == 0 {
		return fmt.Errorf("no events to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_events_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}

	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, eventsPerSecond float64

	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsSuccessful) / float64(stats.EventsSubmitted) * 100
	}

	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("eventsVerified", stats.EventsVerified),
		logger.Int("candidatesExpected", stats.CandidatesExpected),
		logger.Any("candidatesIndexed", stats.CandidatesIndexed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond),
	)
}
