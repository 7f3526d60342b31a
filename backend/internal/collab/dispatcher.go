package collab

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// EventDispatcher publishes DocEvents to Kafka through a local bounded queue
// with worker goroutines and bounded retry. The submit path only enqueues and
// never waits for the broker; when Kafka stalls the queue absorbs the burst,
// and when the queue is full events are dropped rather than growing memory
// without bound. Document events are a firehose, not a ledger.
type EventDispatcher struct {
	producer sarama.SyncProducer
	topic    string

	queue chan DocEvent
	sem   *Semaphore // bounds concurrent SendMessage calls

	workers     int
	maxRetry    int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

type EventDispatcherOptions struct {
	QueueSize   int
	Workers     int
	MaxRetry    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func NewEventDispatcher(producer sarama.SyncProducer, topic string, sem *Semaphore, opt EventDispatcherOptions) *EventDispatcher {
	if opt.QueueSize <= 0 {
		opt.QueueSize = 10_000
	}
	if opt.Workers <= 0 {
		opt.Workers = 4
	}
	d := &EventDispatcher{
		producer:    producer,
		topic:       topic,
		queue:       make(chan DocEvent, opt.QueueSize),
		sem:         sem,
		workers:     opt.Workers,
		maxRetry:    opt.MaxRetry,
		baseBackoff: opt.BaseBackoff,
		maxBackoff:  opt.MaxBackoff,
	}
	for i := 0; i < d.workers; i++ {
		go d.workerLoop(i)
	}
	return d
}

// EnqueueEditApplied records an accepted operation on the firehose.
func (d *EventDispatcher) EnqueueEditApplied(ctx context.Context, op AppliedOp) {
	d.enqueue(ctx, DocEvent{
		EventType:   EventEditApplied,
		DocID:       op.DocID,
		OperationID: op.OperationID,
		Revision:    op.Revision,
		Origin:      op.Origin,
		Ops:         op.Ops,
		At:          op.AppliedAt,
	})
}

func (d *EventDispatcher) EnqueueTitleChanged(ctx context.Context, docID, title, origin string) {
	d.enqueue(ctx, DocEvent{
		EventType: EventTitleChanged,
		DocID:     docID,
		Title:     title,
		Origin:    origin,
		At:        time.Now(),
	})
}

func (d *EventDispatcher) EnqueueSnapshotSaved(ctx context.Context, docID string, revision uint64) {
	d.enqueue(ctx, DocEvent{
		EventType: EventSnapshotSaved,
		DocID:     docID,
		Revision:  revision,
		At:        time.Now(),
	})
}

func (d *EventDispatcher) enqueue(ctx context.Context, evt DocEvent) {
	select {
	case d.queue <- evt:
	case <-ctx.Done():
	default:
		log.Printf("event queue full, drop event type=%s doc=%s rev=%d", evt.EventType, evt.DocID, evt.Revision)
	}
}

func (d *EventDispatcher) workerLoop(workerID int) {
	for evt := range d.queue {
		d.sendWithRetry(workerID, evt)
	}
}

func (d *EventDispatcher) sendWithRetry(workerID int, evt DocEvent) {
	for attempt := 0; attempt <= d.maxRetry; attempt++ {
		if d.sem != nil {
			// workers may wait here; the submit path never does
			_ = d.sem.Acquire(context.Background())
		}
		err := d.sendOnce(evt)
		if d.sem != nil {
			_ = d.sem.Release()
		}
		if err == nil {
			return
		}
		if attempt == d.maxRetry {
			log.Printf("kafka send failed, drop event doc=%s type=%s rev=%d worker=%d err=%v",
				evt.DocID, evt.EventType, evt.Revision, workerID, err)
			return
		}
		backoff := d.baseBackoff * time.Duration(1<<attempt)
		if backoff > d.maxBackoff {
			backoff = d.maxBackoff
		}
		time.Sleep(backoff)
	}
}

func (d *EventDispatcher) sendOnce(evt DocEvent) error {
	if d.producer == nil || d.topic == "" {
		return nil
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: d.topic,
		Key:   sarama.StringEncoder(evt.DocID),
		Value: sarama.ByteEncoder(b),
	}
	_, _, err = d.producer.SendMessage(msg)
	return err
}
