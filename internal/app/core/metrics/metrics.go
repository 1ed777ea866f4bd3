// Package metrics 定義帳本服務的 Prometheus 指標
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
)

const namespace = "nox"

// result label 值
const (
	ResultCommitted = "committed"
	ResultRejected  = "rejected"
	ResultError     = "error"
	ResultStored    = "stored"
	ResultPublished = "published"
	ResultDropped   = "dropped"
	ResultFailed    = "failed"
	ResultFound     = "found"
	ResultEmpty     = "empty"
)

// Metrics 持有自己的 Registry，測試之間互不干擾
type Metrics struct {
	registry *prometheus.Registry

	Transactions        *prometheus.CounterVec
	TransactionDuration *prometheus.HistogramVec
	Notifications       *prometheus.CounterVec
	Searches            *prometheus.CounterVec
	DispatchQueue       prometheus.Gauge
}

// New 建立並註冊所有指標
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "process_transaction calls by kind and result",
		}, []string{"kind", "result"}),
		TransactionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transaction_duration_seconds",
			Help:      "process_transaction latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"kind"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "notification deliveries by result",
		}, []string{"result"}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "searches_total",
			Help:      "account directory searches by result",
		}, []string{"result"}),
		DispatchQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notification_queue_length",
			Help:      "committed transactions waiting for notification dispatch",
		}),
	}
	m.registry.MustRegister(
		m.Transactions,
		m.TransactionDuration,
		m.Notifications,
		m.Searches,
		m.DispatchQueue,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 回傳底層的 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 的 http.Handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTransaction 記錄一次 process_transaction 的結果與耗時
func (m *Metrics) ObserveTransaction(kind domain.TransactionKind, start time.Time, err error) {
	if m == nil {
		return
	}
	k := kind.String()
	m.Transactions.WithLabelValues(k, TransactionResult(err)).Inc()
	m.TransactionDuration.WithLabelValues(k).Observe(time.Since(start).Seconds())
}

// TransactionResult 將錯誤歸類成 result label
func TransactionResult(err error) string {
	switch {
	case err == nil:
		return ResultCommitted
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrAccountBlocked),
		errors.Is(err, domain.ErrSelfTransfer),
		errors.Is(err, domain.ErrInvalidDeposit),
		errors.Is(err, domain.ErrBalanceOverflow),
		errors.Is(err, domain.ErrIdempotencyConflict),
		errors.Is(err, domain.ErrAmountMustBePositive),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrForbidden):
		return ResultRejected
	default:
		return ResultError
	}
}

// Notification 記錄通知投遞結果
func (m *Metrics) Notification(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}

// Search 記錄搜尋是否有結果
func (m *Metrics) Search(found bool) {
	if m == nil {
		return
	}
	if found {
		m.Searches.WithLabelValues(ResultFound).Inc()
		return
	}
	m.Searches.WithLabelValues(ResultEmpty).Inc()
}

// QueueLength 更新通知佇列長度
func (m *Metrics) QueueLength(n int) {
	if m == nil {
		return
	}
	m.DispatchQueue.Set(float64(n))
}
