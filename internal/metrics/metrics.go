package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Wardenfar/parkingsystem/pkg/telemetry"
)

var (
	// Workflow counters
	VehiclesEntered *telemetry.Counter
	VehiclesExited  *telemetry.Counter
	EntriesRejected *telemetry.Counter
	ExitsRejected   *telemetry.Counter
	EventsFailed    *telemetry.Counter

	// Histograms
	FareAmount       *telemetry.Histogram
	StayDuration     *telemetry.Histogram
	WorkflowDuration *telemetry.Histogram

	// Current state
	OccupiedSpots *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all parking metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	VehiclesEntered, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "parking_entries_total",
		Description: "Total number of vehicles admitted",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	VehiclesExited, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "parking_exits_total",
		Description: "Total number of vehicles checked out",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	EntriesRejected, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "parking_entries_rejected_total",
		Description: "Entries refused, by reason",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ExitsRejected, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "parking_exits_rejected_total",
		Description: "Exits refused, by reason",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	EventsFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "parking_event_publish_failures_total",
		Description: "Parking events that could not be published",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	FareAmount, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "parking_fare_amount",
		Description: "Fare charged at exit",
		Unit:        "EUR",
	}, []float64{0, 0.5, 1, 2, 5, 10, 20, 50, 100})
	if err != nil {
		return err
	}

	StayDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "parking_stay_duration_hours",
		Description: "Time between entry and exit",
		Unit:        "h",
	}, []float64{0.25, 0.5, 1, 2, 4, 8, 24, 72})
	if err != nil {
		return err
	}

	WorkflowDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "parking_workflow_duration_seconds",
		Description: "Latency of the entry and exit workflows",
		Unit:        "s",
	}, []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1})
	if err != nil {
		return err
	}

	OccupiedSpots, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "parking_spots_occupied",
		Description: "Spots currently holding a vehicle",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordEntry records an admitted vehicle
func RecordEntry(ctx context.Context, category string, recurrent bool, seconds float64) {
	if VehiclesEntered != nil {
		VehiclesEntered.Inc(ctx,
			attribute.String("vehicle_type", category),
			attribute.Bool("recurrent", recurrent),
		)
	}
	if OccupiedSpots != nil {
		OccupiedSpots.Inc(ctx, attribute.String("vehicle_type", category))
	}
	if WorkflowDuration != nil {
		WorkflowDuration.Record(ctx, seconds, attribute.String("workflow", "entry"))
	}
}

// RecordExit records a checked-out vehicle and its fare
func RecordExit(ctx context.Context, category string, discounted bool, fare, stayHours, seconds float64) {
	if VehiclesExited != nil {
		VehiclesExited.Inc(ctx,
			attribute.String("vehicle_type", category),
			attribute.Bool("discount_applied", discounted),
		)
	}
	if OccupiedSpots != nil {
		OccupiedSpots.Dec(ctx, attribute.String("vehicle_type", category))
	}
	if FareAmount != nil {
		FareAmount.Record(ctx, fare, attribute.String("vehicle_type", category))
	}
	if StayDuration != nil {
		StayDuration.Record(ctx, stayHours, attribute.String("vehicle_type", category))
	}
	if WorkflowDuration != nil {
		WorkflowDuration.Record(ctx, seconds, attribute.String("workflow", "exit"))
	}
}

// RecordEntryRejected records a refused entry
func RecordEntryRejected(ctx context.Context, category, reason string) {
	if EntriesRejected != nil {
		EntriesRejected.Inc(ctx,
			attribute.String("vehicle_type", category),
			attribute.String("reason", reason),
		)
	}
}

// RecordExitRejected records a refused exit
func RecordExitRejected(ctx context.Context, reason string) {
	if ExitsRejected != nil {
		ExitsRejected.Inc(ctx, attribute.String("reason", reason))
	}
}

// RecordRestored adds spots re-occupied at startup
func RecordRestored(ctx context.Context, category string, n int64) {
	if OccupiedSpots != nil && n > 0 {
		OccupiedSpots.Add(ctx, n, attribute.String("vehicle_type", category))
	}
}

// RecordEventFailure records a parking event that could not be published
func RecordEventFailure(ctx context.Context, eventType string) {
	if EventsFailed != nil {
		EventsFailed.Inc(ctx, attribute.String("event_type", eventType))
	}
}
