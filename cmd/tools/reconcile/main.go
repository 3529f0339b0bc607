package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"hftexec/internal/bus"
	"hftexec/internal/cache"
	"hftexec/internal/execution"
	"hftexec/internal/model"
	"hftexec/internal/ops"
	"hftexec/internal/order"
	"hftexec/internal/report"
)

func main() {
	snapshotPath := flag.String("snapshot", "", "Cache snapshot JSON (empty=start from an empty cache)")
	massPath := flag.String("mass-status", "", "Mass status JSON to reconcile")
	configPath := flag.String("config", "", "Optional execd config for engine settings and instruments")
	outPath := flag.String("out", "", "Write the reconciled snapshot here")
	claim := flag.String("claim", "", "Claim external orders as INSTRUMENT=STRATEGY, e.g. BTCUSDT.SIM=S-001")
	verbose := flag.Bool("v", false, "Print synthesized events")
	flag.Parse()

	if *massPath == "" {
		log.Fatalf("mass-status is required")
	}

	cfg := execution.DefaultConfig()
	var instruments []model.Instrument
	if *configPath != "" {
		loaded, err := ops.Load(*configPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
		cfg = loaded.Engine
		instruments = loaded.Instruments
	}

	c := cache.New(nil)
	if *snapshotPath != "" {
		snap, err := cache.ReadSnapshotFile(*snapshotPath)
		if err != nil {
			log.Fatalf("snapshot load failed: %v", err)
		}
		c.Restore(snap)
	}
	for _, inst := range instruments {
		c.AddInstrument(inst)
	}

	ms, err := readMassStatus(*massPath)
	if err != nil {
		log.Fatalf("mass status load failed: %v", err)
	}

	mb := bus.NewMessageBus()
	var orderEvents, positionEvents int
	mb.Subscribe("events.order.*", func(topic string, msg any) {
		orderEvents++
		if ev, ok := msg.(order.Event); ok && *verbose {
			h := ev.Head()
			fmt.Printf("  %s %s %s venue=%s\n", topic, ev.Kind(), h.ClientOrderID, h.VenueOrderID)
		}
	})
	mb.Subscribe("events.position.*", func(topic string, msg any) {
		positionEvents++
		if ev, ok := msg.(execution.PositionEvent); ok && *verbose {
			fmt.Printf("  %s %s %s qty=%s\n", topic, ev.Kind, ev.Position.ID, ev.Position.SignedQty)
		}
	})

	engine, err := execution.New(cfg, c, mb)
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}
	if *claim != "" {
		if err := applyClaim(engine, *claim); err != nil {
			log.Fatalf("claim failed: %v", err)
		}
	}

	ok := engine.ReconcileMassStatus(ms)
	fmt.Printf("reconcile client=%s venue=%s orders=%d order_events=%d position_events=%d result=%t\n",
		ms.ClientID, ms.Venue, len(ms.OrderReports()), orderEvents, positionEvents, ok)
	fmt.Printf("cache orders_open=%d orders_closed=%d positions_open=%d\n",
		len(c.OrdersOpen(cache.OrderFilter{})), len(c.OrdersClosed(cache.OrderFilter{})), len(c.PositionsOpen(cache.PositionFilter{})))

	if *outPath != "" {
		if err := cache.WriteSnapshotFile(*outPath, c.Snapshot()); err != nil {
			log.Fatalf("snapshot write failed: %v", err)
		}
	}
	if !ok {
		os.Exit(1)
	}
}

func readMassStatus(path string) (*report.ExecutionMassStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ms := &report.ExecutionMassStatus{}
	if err := json.Unmarshal(data, ms); err != nil {
		return nil, err
	}
	return ms, nil
}

func applyClaim(engine *execution.Engine, text string) error {
	instText, strategy, ok := strings.Cut(text, "=")
	if !ok {
		return fmt.Errorf("claim %q is not INSTRUMENT=STRATEGY", text)
	}
	inst, err := model.ParseInstrumentID(instText)
	if err != nil {
		return err
	}
	return engine.ClaimExternalOrders(inst, model.StrategyID(strategy))
}
