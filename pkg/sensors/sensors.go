/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package sensors is a runnable topology over simulated temperature sensors. It exercises the
// windowing and plumbing packages end to end:
//
//	poll -> pressure reliever -> valve -> parallel balanced (concurrent calibration)
//	     -> last N mean per sensor -> alert rule -> JSON lines + alert history
//	     -> time batch max per sensor -> JSON lines
package sensors

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/numaproj/edgeflow/pkg/config"
	"github.com/numaproj/edgeflow/pkg/plumbing"
	"github.com/numaproj/edgeflow/pkg/reduce"
	"github.com/numaproj/edgeflow/pkg/shared/ewma"
	"github.com/numaproj/edgeflow/pkg/shared/expr"
	"github.com/numaproj/edgeflow/pkg/shared/queue"
	"github.com/numaproj/edgeflow/pkg/stream"
	"github.com/numaproj/edgeflow/pkg/window"
)

type Reading struct {
	Sensor     string    `json:"sensor"`
	Seq        uint64    `json:"seq"`
	Celsius    float64   `json:"celsius"`
	Fahrenheit float64   `json:"fahrenheit"`
	Time       time.Time `json:"time"`
}

type Alert struct {
	Sensor  string    `json:"sensor"`
	Mean    float64   `json:"mean"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type record struct {
	Kind     string    `json:"kind"`
	Sensor   string    `json:"sensor"`
	Value    float64   `json:"value"`
	Count    int       `json:"count"`
	Smoothed float64   `json:"smoothed,omitempty"`
	Time     time.Time `json:"time"`
}

// Pipeline is a running sensor topology.
type Pipeline struct {
	rt     *stream.Runtime
	log    *zap.SugaredLogger
	valve  *plumbing.Valve[Reading]
	rule   atomic.Pointer[expr.Program]
	alerts *queue.OverflowQueue[Alert]

	// smoothing holds the moving average of each sensor
	smoothing *window.PartitionedState[string, *ewma.EWMA]

	outLock sync.Mutex
	out     *json.Encoder

	readings atomic.Uint64
	averages atomic.Uint64
	maxima   atomic.Uint64
}

func bySensor(r Reading) string {
	return r.Sensor
}

func celsius(r Reading) float64 {
	return r.Celsius
}

// generator emits one reading per call, cycling through the sensors.
type generator struct {
	clk   func() time.Time
	rand  *rand.Rand
	count int
	next  int
	seq   []uint64
}

func (g *generator) read(context.Context) (Reading, error) {
	i := g.next
	g.next = (g.next + 1) % g.count
	g.seq[i]++
	return Reading{
		Sensor:  fmt.Sprintf("sensor-%d", i),
		Seq:     g.seq[i],
		Celsius: 20 + float64(i)*15 + g.rand.NormFloat64()*5,
		Time:    g.clk(),
	}, nil
}

// New builds the topology on rt. Records are written to out as JSON lines.
func New(rt *stream.Runtime, conf config.Config, out io.Writer, opts ...Option) (*Pipeline, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		rt:     rt,
		log:    rt.Logger().Named("sensors"),
		valve:  plumbing.NewValve[Reading](conf.Sensors.IsValveOpen()),
		alerts: queue.New[Alert](conf.Sensors.AlertHistory),
		out:    json.NewEncoder(out),
	}
	span := conf.Sensors.SmoothingSpan
	p.smoothing = window.NewPartitionedState(func(string) *ewma.EWMA {
		e, _ := ewma.New(span)
		return e
	})
	rule, err := expr.CompileBool(conf.Sensors.AlertExpression)
	if err != nil {
		return nil, err
	}
	p.rule.Store(rule)

	gen := &generator{
		clk:   rt.Clock().Now,
		rand:  rand.New(rand.NewSource(o.seed)),
		count: conf.Sensors.Count,
		seq:   make([]uint64, conf.Sensors.Count),
	}
	readings, err := stream.Poll(rt, conf.Sensors.Period/time.Duration(conf.Sensors.Count), gen.read)
	if err != nil {
		return nil, err
	}
	relieved, err := plumbing.PressureReliever(readings, bySensor, conf.Plumbing.ReliefCount)
	if err != nil {
		return nil, err
	}
	gated := stream.Peek(stream.Filter(relieved, p.valve.Test), func(context.Context, Reading) error {
		p.readings.Inc()
		return nil
	})
	calibrated, err := plumbing.ParallelBalanced(gated, conf.Plumbing.Width, calibrate)
	if err != nil {
		return nil, err
	}

	smoothed := stream.Peek(calibrated, func(_ context.Context, r Reading) error {
		p.smoothing.Get(r.Sensor).Add(r.Celsius)
		return nil
	})

	means, err := reduce.Last(smoothed, conf.Sensors.WindowSize, bySensor, reduce.Mean[Reading, string](celsius))
	if err != nil {
		return nil, err
	}
	stream.Sink(means, p.onMean)

	maxima, err := reduce.BatchTime(smoothed, conf.Sensors.BatchPeriod, bySensor, reduce.Max[Reading, string](celsius))
	if err != nil {
		return nil, err
	}
	stream.Sink(maxima, p.onMax)

	if conf.Sensors.ReportSchedule != "" {
		if _, err := rt.Scheduler().ScheduleCron(conf.Sensors.ReportSchedule, p.logReport); err != nil {
			return nil, err
		}
	}
	p.log.Infow("Sensor pipeline started", zap.Int("sensors", conf.Sensors.Count), zap.Int("width", conf.Plumbing.Width),
		zap.String("alertExpression", rule.String()), zap.Bool("valveOpen", p.valve.IsOpen()))
	return p, nil
}

// calibrate fills in the derived units of a reading. The conversions run concurrently and
// are joined per reading.
func calibrate(s *stream.Stream[Reading], _ int) (*stream.Stream[Reading], error) {
	return plumbing.ConcurrentMap(s,
		[]func(context.Context, Reading) (Reading, error){
			func(_ context.Context, r Reading) (Reading, error) {
				r.Celsius = math.Round(r.Celsius*100) / 100
				return r, nil
			},
			func(_ context.Context, r Reading) (Reading, error) {
				r.Fahrenheit = math.Round((r.Celsius*9/5+32)*100) / 100
				return r, nil
			},
		},
		func(_ context.Context, units []Reading) (Reading, error) {
			r := units[0]
			r.Fahrenheit = units[1].Fahrenheit
			return r, nil
		},
	)
}

func (p *Pipeline) write(r record) error {
	p.outLock.Lock()
	defer p.outLock.Unlock()
	if err := p.out.Encode(r); err != nil {
		return fmt.Errorf("failed to write %s record: %w", r.Kind, err)
	}
	return nil
}

func (p *Pipeline) onMean(_ context.Context, m reduce.Result[string]) error {
	p.averages.Inc()
	now := p.rt.Clock().Now()
	smoothed, _ := p.smoothing.Get(m.Key).Value()
	if err := p.write(record{Kind: "mean", Sensor: m.Key, Value: m.Value, Count: m.Count, Smoothed: smoothed, Time: now}); err != nil {
		return err
	}
	rule := p.rule.Load()
	hit, err := rule.EvalBool(map[string]interface{}{"sensor": m.Key, "mean": m.Value, "count": m.Count, "ewma": smoothed})
	if err != nil {
		p.log.Warnw("Failed to evaluate the alert rule", zap.String("sensor", m.Key), zap.Error(err))
		return nil
	}
	if !hit {
		return nil
	}
	alert := Alert{
		Sensor:  m.Key,
		Mean:    m.Value,
		Message: fmt.Sprintf("mean %.2f of %s matched %q", m.Value, m.Key, rule.String()),
		Time:    now,
	}
	alertsCount.WithLabelValues(p.rt.ID()).Inc()
	if evicted, overflow := p.alerts.Append(alert); overflow {
		p.log.Debugw("Alert history is full, dropped the oldest alert", zap.String("sensor", evicted.Sensor))
	}
	p.log.Warnw("Sensor alert", zap.String("sensor", alert.Sensor), zap.Float64("mean", alert.Mean))
	return p.write(record{Kind: "alert", Sensor: m.Key, Value: m.Value, Count: m.Count, Smoothed: smoothed, Time: now})
}

func (p *Pipeline) onMax(_ context.Context, m reduce.Result[string]) error {
	p.maxima.Inc()
	return p.write(record{Kind: "max", Sensor: m.Key, Value: m.Value, Count: m.Count, Time: p.rt.Clock().Now()})
}

func (p *Pipeline) logReport() {
	s := p.Stats()
	p.log.Infow("Sensor pipeline report",
		zap.Uint64("readings", s.Readings),
		zap.Uint64("averages", s.Averages),
		zap.Uint64("maxima", s.Maxima),
		zap.Int("alerts", s.Alerts),
		zap.Uint64("alertsOverflowed", s.AlertsOverflowed),
		zap.Bool("valveOpen", p.valve.IsOpen()),
		zap.Int("pendingTasks", p.rt.Scheduler().Pending()))
}

// Apply updates the valve and the alert rule. An invalid rule is rejected and the current
// one kept.
func (p *Pipeline) Apply(conf config.Config) error {
	open := conf.Sensors.IsValveOpen()
	if open != p.valve.IsOpen() {
		p.valve.SetOpen(open)
		p.log.Infow("Valve changed", zap.Bool("open", open))
	}
	if conf.Sensors.AlertExpression == p.rule.Load().String() {
		return nil
	}
	rule, err := expr.CompileBool(conf.Sensors.AlertExpression)
	if err != nil {
		return err
	}
	p.rule.Store(rule)
	p.log.Infow("Alert rule changed", zap.String("alertExpression", rule.String()))
	return nil
}

// Alerts returns the most recent alerts, oldest first.
func (p *Pipeline) Alerts() []Alert {
	return p.alerts.Items()
}

type Stats struct {
	Readings         uint64 `json:"readings"`
	Averages         uint64 `json:"averages"`
	Maxima           uint64 `json:"maxima"`
	Alerts           int    `json:"alerts"`
	AlertsOverflowed uint64 `json:"alertsOverflowed"`
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Readings:         p.readings.Load(),
		Averages:         p.averages.Load(),
		Maxima:           p.maxima.Load(),
		Alerts:           p.alerts.Length(),
		AlertsOverflowed: p.alerts.Overflowed(),
	}
}

func (p *Pipeline) ValveOpen() bool {
	return p.valve.IsOpen()
}

func (p *Pipeline) AlertExpression() string {
	return p.rule.Load().String()
}
