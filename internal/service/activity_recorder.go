package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/ids"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
)

// ActivityRecorder appends security events off the request path. A
// write failure is retried once and then logged; it never propagates to
// the operation that produced the event.
type ActivityRecorder struct {
	store ActivityStore
	log   zerolog.Logger

	ch        chan models.ActivityRecord
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewActivityRecorder(store ActivityStore, log zerolog.Logger, buffer int) *ActivityRecorder {
	if buffer <= 0 {
		buffer = 256
	}

	r := &ActivityRecorder{
		store: store,
		log:   log,
		ch:    make(chan models.ActivityRecord, buffer),
		done:  make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run()

	return r
}

func (r *ActivityRecorder) run() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.ch:
			r.write(record)
		case <-r.done:
			for {
				select {
				case record := <-r.ch:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *ActivityRecorder) write(record models.ActivityRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := r.store.Insert(ctx, record)
	if err != nil {
		err = r.store.Insert(ctx, record)
	}
	if err != nil {
		r.log.Error().Err(err).
			Str("account_id", record.AccountID).
			Str("action", record.Action).
			Msg("activity record dropped")
	}
}

// Record enqueues one event. When the buffer is full the event is
// dropped with a log line rather than blocking an auth operation.
func (r *ActivityRecorder) Record(accountID, action string, detail map[string]string, origin, userAgent string) {
	record := models.ActivityRecord{
		ID:        ids.New(),
		AccountID: accountID,
		Action:    action,
		Detail:    detail,
		Origin:    origin,
		UserAgent: userAgent,
		CreatedAt: time.Now(),
	}

	select {
	case r.ch <- record:
	default:
		r.log.Warn().
			Str("account_id", accountID).
			Str("action", action).
			Msg("activity buffer full, event dropped")
	}
}

// Close drains buffered events and stops the worker.
func (r *ActivityRecorder) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}
