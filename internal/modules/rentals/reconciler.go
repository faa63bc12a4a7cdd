package rentals

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// The callback handler must acknowledge the vendor before the ledger write
// lands (the vendor's response timeout is aggressive and a late ack triggers
// a retry storm), so return processing runs on this queue after the HTTP
// response is gone. At-least-once with idempotent handlers: CloseOrderOnReturn
// only ever matches in_use orders, so a redelivered task is a no-op.

var (
	reconcileTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handcart_reconcile_tasks_total",
		Help: "Return-callback reconcile tasks by result.",
	}, []string{"result"})
	reconcileQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "handcart_reconcile_queue_depth",
		Help: "Return-callback tasks waiting for the reconcile worker.",
	})
)

type ReturnTask struct {
	MerchantNo  string
	DeviceNo    string
	CartNo      string
	CartIndex   *int
	Electricity any
}

type Reconciler struct {
	ledger      *Ledger
	logger      *slog.Logger
	tasks       chan ReturnTask
	maxAttempts int
	backoff     time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewReconciler(ledger *Ledger, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		ledger:      ledger,
		logger:      logger,
		tasks:       make(chan ReturnTask, 256),
		maxAttempts: 5,
		backoff:     500 * time.Millisecond,
	}
}

// Start launches the worker. Cancel only stops retry backoff waits; the
// worker itself runs until Stop closes the queue, so every acked task is
// processed no matter which order a caller cancels and stops in.
func (r *Reconciler) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case task, ok := <-r.tasks:
				if !ok {
					return
				}
				reconcileQueueDepth.Dec()
				r.process(ctx, task)
			case <-ctx.Done():
				for task := range r.tasks {
					reconcileQueueDepth.Dec()
					r.process(context.Background(), task)
				}
				return
			}
		}
	}()
}

// Enqueue hands a verified callback to the worker. A full queue drops the
// task (the vendor was already acked); the drop is counted and logged so it
// can be reconciled manually.
func (r *Reconciler) Enqueue(task ReturnTask) bool {
	select {
	case r.tasks <- task:
		reconcileQueueDepth.Inc()
		return true
	default:
		reconcileTasks.WithLabelValues("dropped").Inc()
		r.logger.Error("reconcile queue full, task dropped",
			"merchant_no", task.MerchantNo, "device_no", task.DeviceNo, "cart_no", task.CartNo)
		return false
	}
}

// Stop closes the queue and waits for the worker to finish the backlog.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.tasks) })
	r.wg.Wait()
}

func (r *Reconciler) process(ctx context.Context, task ReturnTask) {
	for attempt := 1; ; attempt++ {
		outcome, err := r.ledger.CloseOrderOnReturn(ctx, ReturnParams{
			MerchantNo:  task.MerchantNo,
			DeviceNo:    task.DeviceNo,
			CartNo:      task.CartNo,
			CartIndex:   task.CartIndex,
			Electricity: task.Electricity,
		})
		if err == nil {
			if outcome.Matched {
				reconcileTasks.WithLabelValues("processed").Inc()
			} else {
				reconcileTasks.WithLabelValues("no_match").Inc()
			}
			return
		}

		if attempt >= r.maxAttempts {
			// The vendor already got its success ack; past this point only a
			// human can recover the return event.
			reconcileTasks.WithLabelValues("failed").Inc()
			r.logger.Error("return reconcile abandoned, needs manual reconciliation",
				"merchant_no", task.MerchantNo, "device_no", task.DeviceNo,
				"cart_no", task.CartNo, "attempts", attempt, "err", err)
			return
		}

		reconcileTasks.WithLabelValues("retried").Inc()
		r.logger.Warn("return reconcile failed, retrying",
			"device_no", task.DeviceNo, "cart_no", task.CartNo, "attempt", attempt, "err", err)
		select {
		case <-time.After(r.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			// Finish the write anyway; the ack is already out.
			ctx = context.Background()
		}
	}
}
