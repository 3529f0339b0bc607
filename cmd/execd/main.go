package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"hftexec/internal/bridge"
	"hftexec/internal/bus"
	"hftexec/internal/cache"
	"hftexec/internal/cache/pgstore"
	"hftexec/internal/execution"
	"hftexec/internal/journal"
	"hftexec/internal/obs"
	"hftexec/internal/ops"
	"hftexec/internal/venue/chaos"
	"hftexec/internal/venue/paper"
	"hftexec/pkg/conn"
)

func main() {
	configPath := flag.String("config", "configs/execd.yaml", "Path to JSON or YAML config")
	stopTimeout := flag.Duration("stop-timeout", 10*time.Second, "Graceful stop timeout")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if loaded.Features.EnableProfiling {
		profiler, err := startProfiler(loaded.Profiling)
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	reg := prometheus.NewRegistry()
	metrics := obs.NewMetrics(reg)
	if loaded.Features.EnableMetrics {
		srv := serveMetrics(loaded.Metrics.Addr, reg)
		defer func() {
			_ = srv.Close()
		}()
	}

	c, err := openCache(ctx, loaded)
	if err != nil {
		log.Fatalf("cache init failed: %v", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logs.Warnf("execd: close cache, err: %+v", err)
		}
	}()

	mb := bus.NewMessageBus()
	if loaded.Features.EnableBridge {
		br, err := openBridge(ctx, loaded.Bridge, metrics)
		if err != nil {
			log.Fatalf("bridge init failed: %v", err)
		}
		mb.AddSink(br)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := br.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logs.Errorf("execd: bridge stopped, err: %+v", err)
			}
		}()
		defer func() {
			br.Stop()
			<-done
		}()
	}
	if loaded.Features.EnableJournal {
		jw, err := journal.NewWriter(loaded.Journal)
		if err != nil {
			log.Fatalf("journal init failed: %v", err)
		}
		if err := jw.Start(ctx); err != nil {
			log.Fatalf("journal start failed: %v", err)
		}
		mb.AddSink(jw)
		defer func() {
			if err := jw.Close(); err != nil {
				logs.Errorf("execd: close journal, err: %+v", err)
			}
			logs.Infof("execd: journal closed, dropped=%d", jw.Dropped())
		}()
	}

	engine, err := execution.New(loaded.Engine, c, mb,
		execution.WithMetrics(metrics),
		execution.WithTraderID(loaded.Trader),
	)
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}
	perturbed, err := registerVenues(engine, loaded)
	if err != nil {
		log.Fatalf("venue init failed: %v", err)
	}

	if loaded.Features.ReconcileOnStart && !engine.ReconcileState(ctx) {
		log.Fatalf("state reconciliation failed, refusing to start")
	}
	if err := engine.Start(ctx); err != nil {
		log.Fatalf("engine start failed: %v", err)
	}
	logs.Infof("execd: running with %d client(s)", len(engine.Clients()))

	<-sys.Shutdown()

	for _, w := range perturbed {
		w.Flush()
		st := w.Stats()
		logs.Infof("execd: chaos seen=%d dropped=%d duplicated=%d delivered=%d", st.Seen, st.Dropped, st.Duplicated, st.Delivered)
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), *stopTimeout)
	defer stopCancel()
	if err := engine.Stop(stopCtx); err != nil {
		logs.Errorf("execd: stop engine, err: %+v", err)
	}
	logs.Infof("execd: stopped, commands=%d events=%d reports=%d", engine.CommandCount(), engine.EventCount(), engine.ReportCount())
}

func openCache(ctx context.Context, loaded ops.Loaded) (*cache.Cache, error) {
	var store cache.Store
	switch loaded.Store.Driver {
	case ops.StoreFile:
		store = cache.NewFileStore(loaded.Store.Path)
	case ops.StorePostgres:
		pg, err := pgstore.Open(loaded.Store.Postgres.Option())
		if err != nil {
			return nil, err
		}
		store = pg
	}

	c := cache.New(store)
	if store != nil {
		if err := c.Load(ctx); err != nil {
			return nil, err
		}
	}
	for _, inst := range loaded.Instruments {
		c.AddInstrument(inst)
	}
	if err := c.SaveInstruments(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func openBridge(ctx context.Context, cfg ops.BridgeConfig, metrics *obs.Metrics) (*bridge.Bridge, error) {
	var pub bridge.Publisher
	switch cfg.Kind {
	case ops.BridgeRedis:
		client, err := conn.NewRedis(ctx, cfg.Redis.Option())
		if err != nil {
			return nil, err
		}
		pub = bridge.NewRedis(client, cfg.Redis.Prefix)
	case ops.BridgeKafka:
		pub = bridge.NewKafka(bridge.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	}
	opts := []bridge.Option{bridge.WithMetrics(metrics), bridge.WithTopics(cfg.Topics...)}
	if cfg.BufferSize > 0 {
		opts = append(opts, bridge.WithBufferSize(cfg.BufferSize))
	}
	return bridge.New(pub, opts...), nil
}

// registerVenues returns the chaos wrappers so shutdown can release what
// they still buffer.
func registerVenues(engine *execution.Engine, loaded ops.Loaded) ([]*chaos.Wrapper, error) {
	var perturbed []*chaos.Wrapper
	for _, v := range loaded.Venues {
		opts := []paper.Option{paper.WithInstruments(loaded.Instruments...)}
		if v.Script != "" {
			ms, err := paper.LoadScript(v.Script)
			if err != nil {
				return nil, err
			}
			opts = append(opts, paper.WithScript(ms))
		}
		var handler paper.Handler = engine
		if v.Chaos != nil {
			w, err := chaos.Wrap(engine, *v.Chaos)
			if err != nil {
				return nil, err
			}
			perturbed = append(perturbed, w)
			handler = w
		}
		client, err := paper.New(paper.Config{
			ID:                v.Client,
			Venue:             v.Venue,
			Account:           v.Account,
			OmsType:           v.OmsType,
			FillOnSubmit:      true,
			ResendOnReconnect: true,
		}, handler, opts...)
		if err != nil {
			return nil, err
		}
		if v.IsDefault {
			err = engine.RegisterDefaultClient(client)
		} else {
			err = engine.RegisterClient(client)
		}
		if err != nil {
			return nil, err
		}
	}
	return perturbed, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Errorf("execd: metrics server, err: %+v", err)
		}
	}()
	logs.Infof("execd: metrics on %s/metrics", addr)
	return srv
}

func startProfiler(cfg ops.ProfilingConfig) (*pyroscope.Profiler, error) {
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.Application,
		ServerAddress:   cfg.ServerAddress,
		Logger:          profilerLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
}

type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...interface{})  { logs.Debugf(format, args...) }
func (profilerLogger) Debugf(format string, args ...interface{}) { logs.Debugf(format, args...) }
func (profilerLogger) Errorf(format string, args ...interface{}) { logs.Errorf(format, args...) }
