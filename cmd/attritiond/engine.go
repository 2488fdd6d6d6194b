package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/fitvtt/attrition/internal/api"
	"github.com/fitvtt/attrition/internal/attrition"
	"github.com/fitvtt/attrition/internal/bus"
	"github.com/fitvtt/attrition/internal/cache"
	"github.com/fitvtt/attrition/internal/channel"
	"github.com/fitvtt/attrition/internal/config"
	"github.com/fitvtt/attrition/internal/consume"
	"github.com/fitvtt/attrition/internal/exhaustion"
	"github.com/fitvtt/attrition/internal/flagstore"
	"github.com/fitvtt/attrition/internal/influx"
	"github.com/fitvtt/attrition/internal/logging"
	"github.com/fitvtt/attrition/internal/monitor"
	"github.com/fitvtt/attrition/internal/notify"
	"github.com/fitvtt/attrition/internal/resource"
	"github.com/fitvtt/attrition/internal/scheduler"
	"github.com/fitvtt/attrition/internal/rules/dnd5e"
	"github.com/fitvtt/attrition/internal/worker"
	"github.com/fitvtt/attrition/pkg/core"
	"github.com/fitvtt/attrition/pkg/host"
)

// engine wires every service together around one worldState. Start brings
// the background goroutines up in dependency order and Stop tears them down
// in reverse, flushing storage last.
type engine struct {
	world    *worldState
	backend  flagstore.Backend
	workers  *worker.Manager
	bus      *bus.Bus
	recs     *cache.RecordCache
	trackers []*resource.Tracker
	resolver *exhaustion.Resolver
	gate     *notify.Gate
	handler  *consume.Handler
	sched    *scheduler.Scheduler
	service  *attrition.Service
	monitor  *monitor.Service
	influx   *influx.Manager
	ticks    channel.Channel[core.Tick]

	log    *slog.Logger
	cancel context.CancelFunc
	done   sync.WaitGroup
}

func newEngine(world *worldState, log *slog.Logger, dbLog zerolog.Logger, statusDir string) (*engine, error) {
	e := &engine{
		world: world,
		log:   log,
	}

	storageCfg, err := config.Storage()
	if err != nil {
		return nil, err
	}
	e.backend, err = flagstore.NewBackend(storageCfg, log, dbLog)
	if err != nil {
		return nil, fmt.Errorf("creating storage backend: %w", err)
	}
	if err := e.backend.Init(); err != nil {
		return nil, fmt.Errorf("initializing storage backend: %w", err)
	}

	// memory backend has no flush queue; the worker degrades to a no-op
	flusher, _ := e.backend.(flagstore.Flusher)
	e.workers = worker.NewManager(flusher,
		time.Duration(storageCfg.FlushInterval)*time.Second, log)

	e.bus, err = bus.New(logging.NewBusLogger(dbLog))
	if err != nil {
		return nil, fmt.Errorf("creating event bus: %w", err)
	}

	e.recs = cache.NewRecordCache()
	rules := dnd5e.New(world, log)

	for _, def := range resource.Definitions() {
		e.trackers = append(e.trackers,
			resource.NewTracker(def, e.backend, e.recs, e.bus, rules, log))
	}

	e.resolver = exhaustion.NewResolver(e.trackers, rules, e.bus, log)

	var sinks []notify.Sink
	if viper.GetBool("webhook.enabled") {
		client := api.New(viper.GetString("webhook.serverUrl"), viper.GetString("webhook.apiKey"))
		if err := client.Healthcheck(); err != nil {
			log.Info("Summary webhook is offline", "error", err)
		} else {
			log.Info("Summary webhook is online")
		}
		sinks = append(sinks, client)
	}
	e.gate = notify.NewGate(e.trackers, rules, e.bus, log, sinks...)

	e.handler = consume.NewHandler(e.trackers, e.resolver, e.bus, world, log)
	e.sched = scheduler.New(world, world, world, e.trackers, e.gate, e.resolver, e.recs, log)
	e.service = attrition.NewService(world, world, world, e.trackers, e.backend,
		e.handler, e.resolver, rules, e.bus, log)

	if viper.GetBool("influx.enabled") {
		e.influx = influx.NewManager(dbLog, viper.GetString("logsDir")+"/influx_backup.log.gz")
		if err := e.influx.Connect(); err != nil {
			log.Error("InfluxDB unavailable, metrics go to backup file", "error", err)
		}
		e.subscribeSeverityMetrics()
	}

	e.monitor = monitor.NewService(monitor.Dependencies{
		Scheduler: e.sched,
		Worker:    e.workers,
		Influx:    e.influx,
		Log:       log,
		StatusDir: statusDir,
		Interval:  5 * time.Second,
	})

	e.ticks = channel.New[core.Tick](64)
	return e, nil
}

// subscribeSeverityMetrics mirrors every daily summary into the severity
// bucket, one point per resource line.
func (e *engine) subscribeSeverityMetrics() {
	e.bus.Subscribe(host.EventEvaluateNeeds, func(ev bus.Event) {
		s, ok := ev.Payload.(core.Summary)
		if !ok {
			return
		}
		for _, line := range s.Lines {
			point := influx.SeverityPoint(string(s.ActorID), s.ActorName,
				line.Kind.String(), line.Level, s.WorldTime)
			if err := e.influx.WritePoint(context.Background(), influx.BucketSeverity, point); err != nil {
				e.log.Error("writing severity point", "error", err)
			}
		}
	}, bus.Buffered(16))
}

// Start launches the scheduler, flush worker and status monitor.
func (e *engine) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.done.Add(1)
	go func() {
		defer e.done.Done()
		e.sched.Run(ctx, e.ticks.Receive())
	}()

	e.workers.Start()
	if err := e.monitor.Start(); err != nil {
		e.log.Error("starting status monitor", "error", err)
	}
}

// Stop shuts everything down and flushes pending writes.
func (e *engine) Stop() {
	e.monitor.Stop()
	e.ticks.Close()
	if e.cancel != nil {
		e.cancel()
	}
	e.done.Wait()

	e.workers.Stop()
	if err := e.backend.Close(); err != nil {
		e.log.Error("closing storage backend", "error", err)
	}
	if e.influx != nil {
		if err := e.influx.Close(); err != nil {
			e.log.Error("closing influx", "error", err)
		}
	}
}
