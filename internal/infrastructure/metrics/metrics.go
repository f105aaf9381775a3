package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/cardbank/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transfer metrics
	TransfersFinished *prometheus.CounterVec
	TransferDuration  prometheus.Histogram
	TransferAmount    prometheus.Histogram
	TransferErrors    *prometheus.CounterVec

	// Account metrics
	AccountsCreated prometheus.Counter
	AccountsClosed  prometheus.Counter
	Deposits        prometheus.Counter
	DepositedAmount prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates and registers all Prometheus metrics on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates all Prometheus metrics and registers them on registry.
func NewWithRegistry(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		// Transfer metrics
		TransfersFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardbank_transfers_total",
				Help: "Total number of finished transfers by terminal status",
			},
			[]string{"status"},
		),
		TransferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardbank_transfer_duration_seconds",
			Help:    "Duration of transfer operations",
			Buckets: prometheus.DefBuckets,
		}),
		TransferAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardbank_transfer_amount",
			Help:    "Committed transfer amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		TransferErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardbank_transfer_errors_total",
				Help: "Total number of transfer errors by type",
			},
			[]string{"error_type"},
		),

		// Account metrics
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardbank_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		AccountsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardbank_accounts_closed_total",
			Help: "Total number of accounts closed",
		}),
		Deposits: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardbank_deposits_total",
			Help: "Total number of deposits applied",
		}),
		DepositedAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardbank_deposited_amount_total",
			Help: "Sum of all deposited amounts",
		}),

		gatherer: registry,
	}
}

// AccountCreated implements usecase.Metrics.
func (m *Metrics) AccountCreated() { m.AccountsCreated.Inc() }

// AccountClosed implements usecase.Metrics.
func (m *Metrics) AccountClosed() { m.AccountsClosed.Inc() }

// DepositApplied implements usecase.Metrics.
func (m *Metrics) DepositApplied(amount int64) {
	m.Deposits.Inc()
	m.DepositedAmount.Add(float64(amount))
}

// TransferFinished implements usecase.Metrics.
func (m *Metrics) TransferFinished(t *domain.Transfer, err error, elapsed time.Duration) {
	m.TransfersFinished.WithLabelValues(string(t.Status)).Inc()
	m.TransferDuration.Observe(elapsed.Seconds())

	if err != nil {
		m.TransferErrors.WithLabelValues(errorType(err)).Inc()
		return
	}

	m.TransferAmount.Observe(float64(t.Amount))
}

// WriteToTextfile writes every metric to path in the Prometheus text format.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.gatherer)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrSameAccount):
		return "same_account"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrBalanceOverflow):
		return "balance_overflow"
	case errors.Is(err, domain.ErrTransferAborted):
		return "aborted"
	default:
		return "internal"
	}
}
