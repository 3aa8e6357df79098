package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/shiptrack/tracking-system/internal/api/metrics"
	"github.com/shiptrack/tracking-system/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes location reports to a fixed set of workers using
// consistent hashing on the tracking number. All reports for one shipment
// land on the same worker, so position writes, geofence evaluation and the
// resulting broadcasts stay in arrival order per shipment.
//
// A report naming several shipments is split into one single-shipment report
// per tracking number before sharding; cross-shipment ordering carries no
// guarantee.
type Dispatcher struct {
	workers  []chan ports.LocationReport
	ingestor ports.LocationIngestor
	log      zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, ingestor ports.LocationIngestor, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan ports.LocationReport, numWorkers),
		ingestor: ingestor,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.LocationReport, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a report to the workers responsible for its shipments. A full
// shard drops the sample rather than blocking the caller's read loop; the
// next GPS tick supersedes it anyway.
func (d *Dispatcher) Enqueue(report ports.LocationReport) {
	for _, trackingNumber := range report.TrackingNumbers {
		single := report
		single.TrackingNumbers = []string{trackingNumber}

		idx := d.shardIndex(trackingNumber)
		select {
		case d.workers[idx] <- single:
			metrics.IngestQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		default:
			metrics.ReportsDroppedTotal.WithLabelValues("shard_full").Inc()
			d.log.Warn().
				Str("tracking_number", trackingNumber).
				Int("worker_id", idx).
				Msg("ingest shard full, location report dropped")
		}
	}
}

// shardIndex maps a tracking number deterministically to a worker index.
func (d *Dispatcher) shardIndex(trackingNumber string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(trackingNumber))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.LocationReport) {
	gauge := metrics.IngestQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case report, ok := <-ch:
			if !ok {
				return
			}
			gauge.Set(float64(len(ch)))
			d.ingestor.Ingest(ctx, report)
		}
	}
}
