package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/skalper-bot/trading-bot/internal/state"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	ordersPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Total number of orders placed labeled by side and initial status",
		},
		[]string{"side", "status"},
	)
	ordersCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "Total number of orders cancelled by their owner",
		},
	)
	ledgerRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_rejections_total",
			Help: "Ledger operations rejected before commit, labeled by operation and reason",
		},
		[]string{"operation", "reason"},
	)
	sweepRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_sweep_runs_total",
			Help: "Total number of subscription sweep passes",
		},
	)
	sweepExpirationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_expirations_total",
			Help: "Subscriptions deactivated by the sweep",
		},
	)
	sweepWarningsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_warnings_total",
			Help: "Expiry warning notifications emitted by the sweep",
		},
	)
	notificationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Best-effort notifications that could not be delivered",
		},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of conversation state transitions",
		},
		[]string{"from", "to"},
	)
	activeUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_users",
			Help: "Current number of users with live conversation state",
		},
	)
	usersByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "users_by_state",
			Help: "Number of users per conversation state",
		},
		[]string{"state"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordOrderPlaced counts a successfully committed order.
func RecordOrderPlaced(side, status string) {
	ordersPlacedTotal.WithLabelValues(side, status).Inc()
}

// RecordOrderCancelled counts a successful cancellation.
func RecordOrderCancelled() {
	ordersCancelledTotal.Inc()
}

// RecordLedgerRejection counts a ledger precondition failure.
func RecordLedgerRejection(operation, reason string) {
	ledgerRejectionsTotal.WithLabelValues(operation, reason).Inc()
}

// RecordSweepRun counts one sweep pass and its outcomes.
func RecordSweepRun(expired, warned int) {
	sweepRunsTotal.Inc()
	sweepExpirationsTotal.Add(float64(expired))
	sweepWarningsTotal.Add(float64(warned))
}

// RecordNotificationFailure counts an undeliverable notification.
func RecordNotificationFailure() {
	notificationFailuresTotal.Inc()
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// SetActiveUsers updates the gauge for current active users.
func SetActiveUsers(count int) {
	activeUsers.Set(float64(count))
}

// StateCollector periodically gathers FSM state counts and emits gauge metrics.
type StateCollector struct {
	fsm state.StateMachine
}

// NewStateCollector builds a metrics collector bound to the provided FSM.
func NewStateCollector(fsm state.StateMachine) *StateCollector {
	return &StateCollector{fsm: fsm}
}

// Run polls the FSM every 10 seconds, updating active user gauges until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	states, err := c.fsm.GetAllStates(ctx)
	if err != nil {
		return err
	}

	SetActiveUsers(len(states))

	stateCounts := make(map[string]int, len(states))
	for _, st := range states {
		label := "unknown"
		if st != nil && st.CurrentState != "" {
			label = string(st.CurrentState)
		}
		stateCounts[label]++
	}

	usersByState.Reset()

	for label, count := range stateCounts {
		usersByState.WithLabelValues(label).Set(float64(count))
	}

	return nil
}
