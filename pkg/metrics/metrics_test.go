package metrics

import (
	"context"
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
				So(manager.namespace, ShouldEqual, "margo")
				So(manager.subsystem, ShouldEqual, "reading")
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
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "test-namespace")
				So(manager.subsystem, ShouldEqual, "test-subsystem")
				So(manager.refreshInterval, ShouldEqual, 10*time.Second)
			})
		})

		Convey("When creating with invalid option values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(-time.Second),
				WithCustomLabels(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should survive", func() {
				So(manager.namespace, ShouldEqual, "margo")
				So(manager.subsystem, ShouldEqual, "reading")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
				So(manager.customLabels, ShouldNotBeNil)
			})
		})
	})
}

func TestRecordingHelpers(t *testing.T) {
	Convey("Given the global metrics helpers", t, func() {
		Convey("When recording capture pipeline metrics", func() {
			So(func() {
				RecordSelectionCaptured()
				RecordAnswerApplied()
				RecordEventIgnored()
				RecordEventDuplicate()
				RecordDispatchLatency(1.5)
			}, ShouldNotPanic)
		})

		Convey("When updating session state metrics", func() {
			So(func() {
				UpdateEvidenceSpans(3)
				UpdateTaskProgress(2, 3, 66.7)
				UpdateSessionDwell(42_000)
			}, ShouldNotPanic)
		})

		Convey("When recording scoring metrics", func() {
			So(func() {
				RecordScoringRun("rule_based")
				RecordScoringRun("model_assisted")
				RecordScoredLearners(4)
				RecordScoringLatency(12.0)
			}, ShouldNotPanic)
		})

		Convey("When recording flag metrics", func() {
			So(func() {
				RecordReconcileRun()
				UpdateFlagCounts(1, 2)
				UpdateLearnersTotal(5)
			}, ShouldNotPanic)
		})

		Convey("When recording queue metrics", func() {
			So(func() {
				UpdateQueueSize(10)
				UpdateQueueCapacity(1000)
				UpdateQueueUtilization(0.01)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
			}, ShouldNotPanic)
		})

		Convey("When recording archive metrics", func() {
			So(func() {
				RecordArchiveWrite()
				RecordArchiveError()
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("/evidence", "GET", "200")
				RecordHTTPRequestDuration("/events/selections", "POST", "202", 3.2)
				RecordErrorByComponent("dispatch", "apply_failed")
			}, ShouldNotPanic)
		})

		Convey("When recording system metrics", func() {
			So(func() {
				UpdateSystemMemoryUsage(1024 * 1024)
				UpdateSystemGoroutineCount(20)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("When recording edge values", func() {
			So(func() {
				UpdateQueueSize(0)
				UpdateQueueSize(-5)
				UpdateEvidenceSpans(1_000_000)
				RecordHTTPRequest("", "", "")
				RecordScoringRun("")
			}, ShouldNotPanic)
		})
	})
}

func TestRecordingConcurrency(t *testing.T) {
	Convey("Given concurrent metric writers", t, func() {
		done := make(chan bool, 8)
		for i := 0; i < 8; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					RecordSelectionCaptured()
					UpdateQueueSize(j)
					RecordDispatchLatency(float64(j))
					RecordHTTPRequest("/progress", "GET", "200")
				}
				done <- true
			}()
		}
		for i := 0; i < 8; i++ {
			<-done
		}

		Convey("Then recording should be race-free", func() {
			So(true, ShouldBeTrue)
		})
	})
}

func TestSystemRefresher(t *testing.T) {
	Convey("Given the system stats refresher", t, func() {
		ctx, cancel := context.WithCancel(context.Background())

		Convey("When started and cancelled", func() {
			StartSystemRefresher(ctx)
			cancel()

			Convey("Then it should stop without panicking", func() {
				time.Sleep(10 * time.Millisecond)
				So(true, ShouldBeTrue)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the package registry", t, func() {
		Convey("When fetching it", func() {
			registry := GetRegistry()

			Convey("Then it should be the custom registry", func() {
				So(registry, ShouldNotBeNil)
				So(registry, ShouldEqual, customRegistry)
			})
		})
	})
}
