// Package outbox publishes audit rows written by the postgres audit store to
// Kafka and marks them as published.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"

	txcontext "healthnet/pkg/platform/tx"
)

// Producer is the subset of *kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
	Pending   prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthnet_outbox_published_total",
			Help: "Audit outbox entries published to Kafka",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthnet_outbox_publish_failures_total",
			Help: "Outbox batches that failed to publish",
		}),
		Pending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "healthnet_outbox_last_batch_size",
			Help: "Number of entries picked up by the last relay pass",
		}),
	}
}

type Relay struct {
	db       *sql.DB
	tx       *txcontext.Postgres
	producer Producer
	topic    string
	batch    int
	interval time.Duration
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Relay)

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func New(db *sql.DB, producer Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		db:       db,
		tx:       txcontext.NewPostgres(db, 0),
		producer: producer,
		topic:    topic,
		batch:    100,
		interval: 2 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type entry struct {
	id          string
	aggregateID string
	eventType   string
	payload     []byte
}

// RunOnce publishes one batch of unpublished entries. Rows are locked with
// SKIP LOCKED so several relays can run against the same table.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	var published int
	err := r.tx.Run(ctx, func(ctx context.Context) error {
		q := txcontext.Executor(ctx, r.db)
		rows, err := q.QueryContext(ctx, `
			SELECT id, aggregate_id, event_type, payload
			FROM outbox
			WHERE published_at IS NULL
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, r.batch)
		if err != nil {
			return fmt.Errorf("select outbox: %w", err)
		}
		var entries []entry
		for rows.Next() {
			var e entry
			if err := rows.Scan(&e.id, &e.aggregateID, &e.eventType, &e.payload); err != nil {
				rows.Close()
				return fmt.Errorf("scan outbox: %w", err)
			}
			entries = append(entries, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate outbox: %w", err)
		}
		if r.metrics != nil {
			r.metrics.Pending.Set(float64(len(entries)))
		}
		if len(entries) == 0 {
			return nil
		}

		records := make([]*kgo.Record, 0, len(entries))
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			records = append(records, &kgo.Record{
				Topic: r.topic,
				Key:   []byte(e.aggregateID),
				Value: e.payload,
				Headers: []kgo.RecordHeader{
					{Key: "event_type", Value: []byte(e.eventType)},
				},
			})
			ids = append(ids, e.id)
		}
		if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
			return fmt.Errorf("produce audit batch: %w", err)
		}

		if _, err := q.ExecContext(ctx,
			`UPDATE outbox SET published_at = NOW() WHERE id::text = ANY($1)`,
			pq.Array(ids),
		); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		published = len(entries)
		return nil
	})
	if err != nil {
		if r.metrics != nil {
			r.metrics.Failures.Inc()
		}
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.Published.Add(float64(published))
	}
	return published, nil
}

// Run polls the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.WarnContext(ctx, "outbox relay pass failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.DebugContext(ctx, "outbox relay published", "count", n)
			}
		}
	}
}
