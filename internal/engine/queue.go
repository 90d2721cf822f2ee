package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dtorcivia/meetquorum/internal/negotiation"
	"github.com/dtorcivia/meetquorum/internal/util"
)

// DeliveryQueue serializes outcome webhook delivery so slow endpoints never
// block request handling.
type DeliveryQueue struct {
	ch       chan *negotiation.Result
	workers  int
	client   WebhookClient
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewDeliveryQueue creates a new delivery queue.
func NewDeliveryQueue(workers int, client WebhookClient) *DeliveryQueue {
	if workers < 1 {
		workers = 1
	}

	return &DeliveryQueue{
		ch:      make(chan *negotiation.Result, 100),
		workers: workers,
		client:  client,
		stopCh:  make(chan struct{}),
	}
}

// Start begins processing the queue with worker goroutines.
func (q *DeliveryQueue) Start(ctx context.Context) {
	if q.client == nil || !q.client.Enabled() {
		return
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	util.Info("Outcome delivery queue started", "workers", q.workers)
}

// Stop gracefully stops all workers.
func (q *DeliveryQueue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
		q.wg.Wait()
	})
}

// Enqueue adds a finished negotiation for delivery. Drops with a warning
// when the queue is saturated; the persisted record remains authoritative.
func (q *DeliveryQueue) Enqueue(result *negotiation.Result) {
	if q.client == nil || !q.client.Enabled() {
		return
	}

	select {
	case q.ch <- result:
		util.Debug("Outcome enqueued for delivery", "request_id", result.RequestID)
	default:
		util.Warn("Delivery queue is full, dropping outcome webhook", "request_id", result.RequestID)
	}
}

// Pending returns the number of items waiting in the queue.
func (q *DeliveryQueue) Pending() int {
	return len(q.ch)
}

func (q *DeliveryQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	util.Debug("Delivery worker started", "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case result := <-q.ch:
			q.deliver(ctx, result)
		}
	}
}

func (q *DeliveryQueue) deliver(ctx context.Context, result *negotiation.Result) {
	deliveryCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := q.client.Deliver(deliveryCtx, result); err != nil {
		util.Error("Outcome delivery failed", "request_id", result.RequestID, "error", err)
	}
}
