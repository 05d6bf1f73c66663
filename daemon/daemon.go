// Package daemon wires the tuning units to the host and runs the periodic
// update loop.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ftahirops/xtune/collector"
	"github.com/ftahirops/xtune/config"
	"github.com/ftahirops/xtune/engine"
	"github.com/ftahirops/xtune/model"
	"github.com/ftahirops/xtune/plugins"
	"github.com/ftahirops/xtune/storage"
	"github.com/ftahirops/xtune/units"
)

// Option customizes a Daemon.
type Option func(*Daemon)

// WithPower replaces hdparm as the power control backend.
func WithPower(p plugins.PowerControl) Option {
	return func(d *Daemon) { d.power = p }
}

// Daemon owns the store, the units and the status files.
type Daemon struct {
	cfg     *config.Config
	store   storage.Store
	metrics *engine.Metrics
	events  *engine.EventLogWriter
	manager *units.Manager
	power   plugins.PowerControl
	ticks   uint64
	started bool
	log     *logrus.Entry
}

// New opens the store, reverts elevator overrides left by a previous run
// and creates the configured instances.
func New(cfg *config.Config, opts ...Option) (*Daemon, error) {
	d := &Daemon{
		cfg:     cfg,
		metrics: engine.NewMetrics(),
		log:     logrus.WithField("component", "daemon"),
	}
	for _, o := range opts {
		o(d)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := storage.Open(cfg.Store, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	d.store = store

	sched := collector.SysfsScheduler{Root: cfg.SysfsRoot}
	if n, err := Recover(store, sched, d.metrics); err != nil {
		d.log.Warnf("elevator recovery incomplete: %v", err)
	} else if n > 0 {
		d.log.Infof("restored elevator of %d devices left by a previous run", n)
	}

	if d.power == nil {
		h, err := collector.NewHdparm(cfg.HdparmPath)
		if err != nil {
			d.log.Warnf("%v: power levels will not be applied", err)
		}
		d.power = h
	}

	d.events = engine.NewEventLogWriter(EventsPath(cfg.DataDir))
	env := plugins.Env{
		Devices:   collector.SysfsDevices{Root: cfg.SysfsRoot, Vendors: cfg.Vendors},
		Monitors:  collector.NewRepository(cfg.ProcfsRoot),
		Store:     store,
		Scheduler: sched,
		Power:     d.power,
		Profile:   model.DefaultPowerProfile(),
		Metrics:   d.metrics,
		Events:    d.events,
	}
	d.manager = units.NewManager(plugins.NewRepository(env), d.metrics)
	d.manager.Create(cfg.Instances)
	return d, nil
}

// Recover reverts every persisted elevator override.
func Recover(store storage.Store, sched engine.SchedulerIO, metrics *engine.Metrics) (int, error) {
	return engine.NewElevatorGuard(sched, store, metrics).RecoverAll()
}

// Manager returns the instance manager.
func (d *Daemon) Manager() *units.Manager { return d.manager }

// Metrics returns the daemon's metrics.
func (d *Daemon) Metrics() *engine.Metrics { return d.metrics }

// Start applies the initial tuning of every instance.
func (d *Daemon) Start() error {
	d.started = true
	return d.manager.StartTuning()
}

// Tick runs one update of every instance and publishes the status.
func (d *Daemon) Tick() error {
	start := time.Now()
	err := d.manager.UpdateTuning()
	d.metrics.ObserveTick(time.Since(start))
	d.ticks++

	if werr := WriteStatus(StatusPath(d.cfg.DataDir), d.Status()); werr != nil {
		d.log.Warnf("writing status: %v", werr)
	}
	return err
}

// Status returns the current daemon snapshot.
func (d *Daemon) Status() model.Status {
	st := model.Status{
		Timestamp: time.Now(),
		PID:       os.Getpid(),
		Interval:  d.cfg.Interval,
		Ticks:     d.ticks,
		Devices:   d.manager.Status(),
	}
	for _, inst := range d.manager.Instances() {
		st.Instances = append(st.Instances, inst.Name())
	}
	return st
}

// Close stops tuning, destroys the instances and closes the store. Devices
// are restored before the store goes away.
func (d *Daemon) Close() error {
	var errs []error
	if d.started {
		if err := d.manager.StopTuning(); err != nil {
			errs = append(errs, err)
		}
		d.started = false
	}
	d.manager.DestroyAll()
	if err := d.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// Run builds the daemon and drives it until ctx is canceled or SIGINT or
// SIGTERM is received.
func Run(ctx context.Context, cfg *config.Config, opts ...Option) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	pidPath := PIDPath(cfg.DataDir)
	if err := writePID(pidPath); err != nil {
		return err
	}
	defer os.Remove(pidPath)

	d, err := New(cfg, opts...)
	if err != nil {
		return err
	}

	log := d.log
	log.Infof("xtune daemon started (pid=%d, interval=%s, datadir=%s)", os.Getpid(), cfg.Interval, cfg.DataDir)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(d.metrics), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Infof("metrics listening on %s", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		if err := d.Start(); err != nil {
			log.Errorf("start tuning: %v", err)
		}
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := d.Tick(); err != nil {
					log.Errorf("update tuning: %v", err)
				}
			}
		}
	})

	runErr := g.Wait()
	log.Info("xtune daemon shutting down")
	if err := d.Close(); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	return runErr
}

func metricsMux(m *engine.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
