package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/missioncontrol/internal/beans"
	"github.com/dshills/missioncontrol/internal/beans/property"
	"github.com/dshills/missioncontrol/internal/drone"
	"github.com/dshills/missioncontrol/internal/measure"
	"github.com/dshills/missioncontrol/internal/preflight"
)

// Report summarizes a simulation run.
type Report struct {
	Samples          int64
	Snapshots        int64
	Contended        int64
	Switches         int64
	ChecklistChanges int64
	Elapsed          time.Duration
}

type counters struct {
	samples, snapshots, contended, switches, checklists atomic.Int64
}

var flightModes = []drone.FlightMode{
	drone.ModeOnGround,
	drone.ModeTakeoff,
	drone.ModeMission,
	drone.ModeHold,
	drone.ModeLanding,
}

// Sample returns telemetry sample n. All fields derive from n, so a
// snapshot mixing two samples is detectable with Consistent.
func Sample(n int) drone.Telemetry {
	alt := float64(n)
	return drone.Telemetry{
		Altitude: measure.Of(alt, measure.Meter),
		Speed:    measure.Of(alt/10, measure.MeterPerSecond),
		Battery:  measure.Of(100-math.Mod(alt, 100), measure.Percent),
		Mode:     flightModes[(n/10)%len(flightModes)],
	}
}

// Consistent reports whether t is a single sample as produced by Sample.
func Consistent(t drone.Telemetry) bool {
	n := t.Altitude.Value
	if n != math.Trunc(n) || n < 0 {
		return false
	}
	return t.Speed.Value == n/10 &&
		t.Battery.Value == 100-math.Mod(n, 100) &&
		t.Mode == flightModes[(int(n)/10)%len(flightModes)]
}

// Run simulates the fleet until the configured duration elapses or ctx is
// done. Each drone connects, reporting its platform, and then writes a
// telemetry sample per interval; a reader verifies snapshots of every drone
// and a switcher cycles the current drone of the flight scope.
func (app *Application) Run(ctx context.Context) (Report, error) {
	if !app.running.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRunning
	}
	defer app.running.Store(false)

	cfg := app.configs.Config()
	duration := cfg.Simulation.Duration
	if app.opts.Duration > 0 {
		duration = app.opts.Duration
	}
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	interval := cfg.Simulation.Interval

	var c counters
	sub := app.vm.Checklist().AddListener(func(property.ReadOnly[*preflight.ActiveChecklist], *preflight.ActiveChecklist, *preflight.ActiveChecklist) {
		c.checklists.Add(1)
	})
	defer sub.Remove()

	app.logger.Info("simulation started",
		zap.Duration("interval", interval),
		zap.Duration("duration", duration))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	ids := drone.PlatformIDs()
	for i, d := range app.drones {
		platform := drone.Platforms[ids[i%len(ids)]]
		g.Go(func() error { return app.fly(gctx, d, platform, interval, &c) })
	}
	g.Go(func() error { return app.observe(gctx, interval, &c) })
	g.Go(func() error { return app.switchDrones(gctx, interval, &c) })

	err := g.Wait()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		err = nil
	}

	r := Report{
		Samples:          c.samples.Load(),
		Snapshots:        c.snapshots.Load(),
		Contended:        c.contended.Load(),
		Switches:         c.switches.Load(),
		ChecklistChanges: c.checklists.Load(),
		Elapsed:          time.Since(start),
	}
	app.logger.Info("simulation finished",
		zap.Int64("samples", r.Samples),
		zap.Int64("snapshots", r.Snapshots),
		zap.Int64("contended", r.Contended),
		zap.Int64("switches", r.Switches),
		zap.Int64("checklistChanges", r.ChecklistChanges),
		zap.Duration("elapsed", r.Elapsed),
		zap.Error(err))
	return r, err
}

// stopped reports whether err ends a simulation goroutine quietly.
func stopped(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (app *Application) fly(ctx context.Context, d *drone.Drone, platform *drone.PlatformDescription, interval time.Duration, c *counters) error {
	if err := d.SetPlatform(ctx, platform); err != nil {
		if stopped(ctx, err) {
			return nil
		}
		return fmt.Errorf("connecting %s: %w", d.Serial(), err)
	}
	app.logger.Debug("drone connected", zap.Stringer("drone", d))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		err := d.UpdateTelemetry(ctx, Sample(n))
		switch {
		case err == nil:
			c.samples.Add(1)
		case errors.Is(err, beans.ErrWouldBlock):
			c.contended.Add(1)
		case stopped(ctx, err):
			return nil
		default:
			return fmt.Errorf("telemetry of %s: %w", d.Serial(), err)
		}
	}
}

func (app *Application) observe(ctx context.Context, interval time.Duration, c *counters) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		for _, d := range app.drones {
			t, err := d.Snapshot(ctx)
			switch {
			case err == nil:
			case errors.Is(err, beans.ErrWouldBlock):
				c.contended.Add(1)
				continue
			case stopped(ctx, err):
				return nil
			default:
				return fmt.Errorf("snapshot of %s: %w", d.Serial(), err)
			}

			if !Consistent(t) {
				return fmt.Errorf("%w: drone %s: %+v", ErrInconsistentSnapshot, d.Serial(), t)
			}
			c.snapshots.Add(1)
			app.logger.Debug("telemetry",
				zap.String("drone", d.Serial()),
				zap.String("altitude", measure.Display(d.Altitude())),
				zap.String("speed", measure.Display(d.Speed())),
				zap.String("battery", measure.Display(d.Battery())),
				zap.String("mode", string(t.Mode)))
		}
	}
}

func (app *Application) switchDrones(ctx context.Context, interval time.Duration, c *counters) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		d := app.drones[i%len(app.drones)]
		if err := app.scope.Select(ctx, d); err != nil {
			if stopped(ctx, err) {
				return nil
			}
			return fmt.Errorf("selecting %s: %w", d.Serial(), err)
		}
		c.switches.Add(1)

		fields := []zap.Field{zap.String("drone", d.Serial())}
		if cl := app.vm.Checklist().GetUncritical(); cl != nil {
			fields = append(fields,
				zap.String("checklist", string(cl.AirplaneType)),
				zap.Int("steps", app.vm.TotalCount().GetUncritical()))
		}
		app.logger.Debug("current drone changed", fields...)
	}
}
