package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hftexec/internal/execution"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/venue/chaos"
	"hftexec/pkg/exception"
)

const sampleYAML = `
trader: TRADER-007
engine:
  inflight_check_retries: 3
  open_check_open_only: false
registry:
  venues:
    - name: SIM
      client: SIM-1
      account: SIM-001
      oms_type: hedging
      default: true
      chaos:
        seed: 11
        duplicate_rate: 0.25
        reorder_window: 2
  instruments:
    - symbol: BTCUSDT
      venue: SIM
      price_precision: 2
      size_precision: 3
      taker_fee: "0.001"
      base: BTC
      quote: USDT
store:
  driver: file
  path: /tmp/cache.json
journal:
  dir: /tmp/journal
  segment_max_minutes: 5
  flush_interval_ms: 250
  topics: [events.order.*]
features:
  enable_metrics: false
  enable_journal: true
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	loaded, err := Load(writeConfig(t, "execd.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, model.TraderID("TRADER-007"), loaded.Trader)
	assert.Equal(t, 3, loaded.Engine.InflightCheckRetries)
	assert.False(t, loaded.Engine.OpenCheckOpenOnly)
	assert.Equal(t, execution.DefaultConfig().QSize, loaded.Engine.QSize, "untouched keys keep defaults")
	assert.True(t, loaded.Engine.Reconciliation)

	require.Len(t, loaded.Venues, 1)
	assert.Equal(t, VenueSpec{
		Venue:     "SIM",
		Client:    "SIM-1",
		Account:   "SIM-001",
		OmsType:   enum.OmsTypeHedging,
		IsDefault: true,
		Chaos:     &chaos.Config{Seed: 11, DuplicateRate: 0.25, ReorderWindow: 2},
	}, loaded.Venues[0])

	require.Len(t, loaded.Instruments, 1)
	inst := loaded.Instruments[0]
	assert.Equal(t, "BTCUSDT.SIM", inst.ID.String())
	assert.Equal(t, "0.001", inst.TakerFee.String())
	assert.Equal(t, "1", inst.Multiplier.String())
	assert.True(t, inst.MakerFee.IsZero())

	assert.Equal(t, StoreFile, loaded.Store.Driver)
	assert.Equal(t, ":9100", loaded.Metrics.Addr)
	assert.Equal(t, FeatureFlags{EnableJournal: true, ReconcileOnStart: true}, loaded.Features)

	assert.Equal(t, "/tmp/journal", loaded.Journal.Dir)
	assert.Equal(t, "journal", loaded.Journal.FilePrefix)
	assert.Equal(t, 5*time.Minute, loaded.Journal.SegmentMaxDuration)
	assert.Equal(t, 250*time.Millisecond, loaded.Journal.FlushInterval)
	assert.Equal(t, []string{"events.order.*"}, loaded.Journal.Topics)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "execd.json", `{"registry": {"venues": [{"name": "SIM"}]}}`)
	t.Setenv("HFTEXEC_ENGINE_QSIZE", "42")
	t.Setenv("HFTEXEC_ENGINE_RECONCILIATION", "false")
	t.Setenv("HFTEXEC_METRICS_ADDR", ":9999")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Engine.QSize)
	assert.False(t, loaded.Engine.Reconciliation)
	assert.Equal(t, ":9999", loaded.Metrics.Addr)
	assert.Equal(t, model.ClientID("SIM"), loaded.Venues[0].Client, "client defaults to the venue name")
	assert.Equal(t, enum.OmsTypeNetting, loaded.Venues[0].OmsType)
	assert.Nil(t, loaded.Venues[0].Chaos)
	assert.Equal(t, "data/journal", loaded.Journal.Dir)
	assert.Equal(t, []string{"commands.*", "events.*", "reports.*"}, loaded.Journal.Topics)
}

func TestResolveRejects(t *testing.T) {
	base := func() FileConfig {
		return FileConfig{
			Engine: execution.DefaultConfig(),
			Registry: RegistryConfig{
				Venues:      []VenueConfig{{Name: "SIM"}},
				Instruments: []InstrumentConfig{{Symbol: "BTCUSDT", Venue: "SIM"}},
			},
		}
	}
	on := true

	testCases := []struct {
		desc   string
		mutate func(c *FileConfig)
		want   error
	}{
		{
			desc:   "negative engine value",
			mutate: func(c *FileConfig) { c.Engine.InflightCheckRetries = -1 },
			want:   exception.ErrInvalidArgument,
		},
		{
			desc:   "unknown venue",
			mutate: func(c *FileConfig) { c.Registry.Instruments[0].Venue = "OTHER" },
			want:   exception.ErrInvalidArgument,
		},
		{
			desc: "duplicate client",
			mutate: func(c *FileConfig) {
				c.Registry.Venues = append(c.Registry.Venues, VenueConfig{Name: "SIM"})
			},
			want: exception.ErrInvalidArgument,
		},
		{
			desc:   "bad fee",
			mutate: func(c *FileConfig) { c.Registry.Instruments[0].TakerFee = "abc" },
		},
		{
			desc:   "file store without path",
			mutate: func(c *FileConfig) { c.Store.Driver = StoreFile },
			want:   exception.ErrInvalidArgument,
		},
		{
			desc:   "unsupported store",
			mutate: func(c *FileConfig) { c.Store.Driver = "mongo" },
			want:   exception.ErrArgumentUnsupported,
		},
		{
			desc: "chaos drop rate above one",
			mutate: func(c *FileConfig) {
				c.Registry.Venues[0].Chaos = &ChaosConfig{DropRate: 2}
			},
			want: exception.ErrInvalidArgument,
		},
		{
			desc:   "journal without dir",
			mutate: func(c *FileConfig) { c.Features.EnableJournal = &on },
			want:   exception.ErrInvalidArgument,
		},
		{
			desc: "kafka without brokers",
			mutate: func(c *FileConfig) {
				c.Features.EnableBridge = &on
				c.Bridge.Kind = BridgeKafka
			},
			want: exception.ErrInvalidArgument,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			_, err := Resolve(cfg)
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestResolveFeatures(t *testing.T) {
	off := false
	flags := resolveFeatures(FeatureFlagsConfig{ReconcileOnStart: &off})
	assert.Equal(t, FeatureFlags{EnableMetrics: true}, flags)
}
