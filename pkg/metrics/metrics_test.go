package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics helpers", t, func() {
		Convey("When recording business metrics", func() {
			Convey("Then no helper should panic", func() {
				So(func() {
					RecordEventIngested()
					RecordEventDuplicate()
					RecordEventSkipped()
					RecordCandidatesFound(7)
					RecordCombineLatency(1.5)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording queue and worker metrics", func() {
			So(func() {
				UpdateQueueSize(10)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(0.2)
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(4)
				RecordWorkerProcessingLatency(3.0)
				RecordWorkerError()
			}, ShouldNotPanic)
		})

		Convey("When recording index and kafka metrics", func() {
			So(func() {
				UpdateIndexCandidatesTotal(42)
				UpdateEventsIndexed(12)
				RecordIndexInsertLatency(0.1)
				RecordIndexQueryLatency(0.4)
				RecordIndexSnapshotRebuildDuration(2.5)
				RecordKafkaMessage()
				RecordKafkaDecodeError()
				RecordCombineError()
				RecordIndexError()
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP and system metrics", func() {
			So(func() {
				RecordHTTPRequest("events", "POST", "202")
				RecordHTTPRequestDuration("events", "POST", "202", 1.2)
				RecordErrorByComponent("queue", "capacity_exceeded")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(30)
				RecordSystemGCPauseTime(0.05)
			}, ShouldNotPanic)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		Convey("When fetching it", func() {
			registry := GetRegistry()

			Convey("Then it should not be nil and should gather our metrics", func() {
				So(registry, ShouldNotBeNil)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
