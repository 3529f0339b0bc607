package execution

import (
	"time"

	"hftexec/internal/errors"
	"hftexec/pkg/exception"
)

// Config controls reconciliation and the periodic check loops. Zero
// intervals disable the matching loop.
type Config struct {
	Reconciliation                   bool `mapstructure:"reconciliation" json:"reconciliation"`
	ReconciliationLookbackMins       int  `mapstructure:"reconciliation_lookback_mins" json:"reconciliation_lookback_mins"`
	ReconciliationStartupTimeoutSecs int  `mapstructure:"reconciliation_startup_timeout_secs" json:"reconciliation_startup_timeout_secs"`
	FilterUnclaimedExternalOrders    bool `mapstructure:"filter_unclaimed_external_orders" json:"filter_unclaimed_external_orders"`
	FilterPositionReports            bool `mapstructure:"filter_position_reports" json:"filter_position_reports"`
	GenerateMissingOrders            bool `mapstructure:"generate_missing_orders" json:"generate_missing_orders"`

	InflightCheckIntervalMs  int `mapstructure:"inflight_check_interval_ms" json:"inflight_check_interval_ms"`
	InflightCheckThresholdMs int `mapstructure:"inflight_check_threshold_ms" json:"inflight_check_threshold_ms"`
	InflightCheckRetries     int `mapstructure:"inflight_check_retries" json:"inflight_check_retries"`

	OpenCheckIntervalSecs int  `mapstructure:"open_check_interval_secs" json:"open_check_interval_secs"`
	OpenCheckOpenOnly     bool `mapstructure:"open_check_open_only" json:"open_check_open_only"`
	OpenCheckLookbackMins int  `mapstructure:"open_check_lookback_mins" json:"open_check_lookback_mins"`

	PurgeClosedOrdersIntervalMins    int `mapstructure:"purge_closed_orders_interval_mins" json:"purge_closed_orders_interval_mins"`
	PurgeClosedOrdersBufferMins      int `mapstructure:"purge_closed_orders_buffer_mins" json:"purge_closed_orders_buffer_mins"`
	PurgeClosedPositionsIntervalMins int `mapstructure:"purge_closed_positions_interval_mins" json:"purge_closed_positions_interval_mins"`
	PurgeClosedPositionsBufferMins   int `mapstructure:"purge_closed_positions_buffer_mins" json:"purge_closed_positions_buffer_mins"`
	PurgeAccountEventsIntervalMins   int `mapstructure:"purge_account_events_interval_mins" json:"purge_account_events_interval_mins"`
	PurgeAccountEventsLookbackMins   int `mapstructure:"purge_account_events_lookback_mins" json:"purge_account_events_lookback_mins"`

	SnapshotIntervalSecs int `mapstructure:"snapshot_interval_secs" json:"snapshot_interval_secs"`
	QSize                int `mapstructure:"qsize" json:"qsize"`
}

func DefaultConfig() Config {
	return Config{
		Reconciliation:                   true,
		ReconciliationStartupTimeoutSecs: 10,
		InflightCheckIntervalMs:          2_000,
		InflightCheckThresholdMs:         5_000,
		InflightCheckRetries:             5,
		OpenCheckOpenOnly:                true,
		OpenCheckLookbackMins:            60,
		PurgeClosedOrdersBufferMins:      60,
		PurgeClosedPositionsBufferMins:   60,
		PurgeAccountEventsLookbackMins:   60,
		QSize:                            100_000,
	}
}

// Validate rejects negative values and a missing queue size.
func (c Config) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"reconciliation_lookback_mins", c.ReconciliationLookbackMins},
		{"reconciliation_startup_timeout_secs", c.ReconciliationStartupTimeoutSecs},
		{"inflight_check_interval_ms", c.InflightCheckIntervalMs},
		{"inflight_check_threshold_ms", c.InflightCheckThresholdMs},
		{"inflight_check_retries", c.InflightCheckRetries},
		{"open_check_interval_secs", c.OpenCheckIntervalSecs},
		{"open_check_lookback_mins", c.OpenCheckLookbackMins},
		{"purge_closed_orders_interval_mins", c.PurgeClosedOrdersIntervalMins},
		{"purge_closed_orders_buffer_mins", c.PurgeClosedOrdersBufferMins},
		{"purge_closed_positions_interval_mins", c.PurgeClosedPositionsIntervalMins},
		{"purge_closed_positions_buffer_mins", c.PurgeClosedPositionsBufferMins},
		{"purge_account_events_interval_mins", c.PurgeAccountEventsIntervalMins},
		{"purge_account_events_lookback_mins", c.PurgeAccountEventsLookbackMins},
		{"snapshot_interval_secs", c.SnapshotIntervalSecs},
	}
	for _, chk := range checks {
		if chk.value < 0 {
			return errors.Wrapf(exception.ErrInvalidArgument, "%s must be >= 0, got %d", chk.name, chk.value)
		}
	}
	if c.QSize <= 0 {
		return errors.Wrapf(exception.ErrInvalidArgument, "qsize must be > 0, got %d", c.QSize)
	}
	return nil
}

func (c Config) inflightInterval() time.Duration {
	return time.Duration(c.InflightCheckIntervalMs) * time.Millisecond
}

func (c Config) inflightThreshold() time.Duration {
	return time.Duration(c.InflightCheckThresholdMs) * time.Millisecond
}

func (c Config) openCheckInterval() time.Duration {
	return time.Duration(c.OpenCheckIntervalSecs) * time.Second
}

func (c Config) openCheckLookback() time.Duration {
	return time.Duration(c.OpenCheckLookbackMins) * time.Minute
}

func (c Config) startupTimeout() time.Duration {
	if c.ReconciliationStartupTimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ReconciliationStartupTimeoutSecs) * time.Second
}

func (c Config) snapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalSecs) * time.Second
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }
