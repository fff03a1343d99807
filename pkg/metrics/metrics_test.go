package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			bucketsOpt := WithHistogramBuckets([]float64{1, 5, 10})
			enabledOpt := WithMetricsEnabled(false)

			Convey("Then they should not be nil", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(bucketsOpt, ShouldNotBeNil)
				So(enabledOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should carry the service defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "rmi")
				So(manager.subsystem, ShouldEqual, "scoring")
				So(manager.enabled, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("custom"),
				WithSubsystem("pillars"),
				WithHistogramBuckets([]float64{0.5, 1, 2}),
				WithMetricsEnabled(false),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should apply", func() {
				So(manager.namespace, ShouldEqual, "custom")
				So(manager.subsystem, ShouldEqual, "pillars")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.5, 1, 2})
				So(manager.enabled, ShouldBeFalse)
			})
		})

		Convey("When options carry invalid values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the defaults should survive", func() {
				So(manager.namespace, ShouldEqual, "rmi")
				So(manager.subsystem, ShouldEqual, "scoring")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the package-level recording helpers", t, func() {
		Convey("Then recording should not panic", func() {
			So(func() {
				RecordCalculation()
				RecordCalculationLatency(12.5)
				UpdatePillarScore("People", 3.4)
				RecordCriticalFailure()
				RecordEvidenceViolation()
				RecordNarrativeDegradation()
				RecordAnalysis("Work Order Analysis")
				RecordAnalysisError()
				UpdateQueueSize(5)
				UpdateQueueCapacity(100)
				RecordEnqueue()
				RecordDequeue()
				RecordEnqueueError()
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(40)
				RecordWorkerError()
				RecordHTTPRequest("/assessments", "POST", "200")
				RecordHTTPRequestDuration("/assessments", "POST", "200", 3.2)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recording", t, func() {
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordCalculation()
				RecordEnqueue()
				RecordDequeue()
				UpdateQueueSize(3)
			}()
		}
		wg.Wait()

		Convey("Then the registry should still serve", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
