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

// Package config loads the configuration of the edgeflow binary. Values missing from the file
// are taken from DefaultConfig, and the file is watched so changes apply without a restart.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/imdario/mergo"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

type GlobalConfig struct {
	conf      *Config
	lock      *sync.RWMutex
	listeners []func(Config)
}

type Config struct {
	Sensors  SensorsConfig  `json:"sensors"`
	Plumbing PlumbingConfig `json:"plumbing"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// SensorsConfig configures the simulated sensor pipeline.
type SensorsConfig struct {
	// Count is the number of simulated sensors.
	Count int `json:"count"`
	// Period between two readings of a sensor.
	Period time.Duration `json:"period"`
	// WindowSize is the number of readings averaged per sensor.
	WindowSize int `json:"windowSize"`
	// BatchPeriod is the period of the per sensor maximum.
	BatchPeriod time.Duration `json:"batchPeriod"`
	// ReportSchedule is a cron spec for the statistics report.
	ReportSchedule string `json:"reportSchedule"`
	// SmoothingSpan is the span of the per sensor moving average.
	SmoothingSpan float64 `json:"smoothingSpan"`
	// ValveOpen lets readings through, nil means open.
	ValveOpen *bool `json:"valveOpen"`
	// AlertExpression is evaluated against every average, see pkg/shared/expr.
	AlertExpression string `json:"alertExpression"`
	AlertHistory    int    `json:"alertHistory"`
}

type PlumbingConfig struct {
	Width                     int `json:"width"`
	ReliefCount               int `json:"reliefCount"`
	ParallelChannelBuffer     int `json:"parallelChannelBuffer"`
	ConcurrentBarrierCapacity int `json:"concurrentBarrierCapacity"`
	UnorderedWorkers          int `json:"unorderedWorkers"`
}

type MetricsConfig struct {
	Addr  string `json:"addr"`
	Pprof bool   `json:"pprof"`
}

func DefaultConfig() Config {
	open := true
	return Config{
		Sensors: SensorsConfig{
			Count:           4,
			Period:          200 * time.Millisecond,
			WindowSize:      10,
			BatchPeriod:     5 * time.Second,
			ReportSchedule:  "@every 10s",
			SmoothingSpan:   10,
			ValveOpen:       &open,
			AlertExpression: `mean > 80`,
			AlertHistory:    20,
		},
		Plumbing: PlumbingConfig{
			Width:                     3,
			ReliefCount:               5,
			ParallelChannelBuffer:     10,
			ConcurrentBarrierCapacity: 10,
			UnorderedWorkers:          4,
		},
		Metrics: MetricsConfig{
			Addr: ":2469",
		},
	}
}

// IsValveOpen reports whether readings pass the valve.
func (s SensorsConfig) IsValveOpen() bool {
	return s.ValveOpen == nil || *s.ValveOpen
}

func (c Config) Validate() error {
	var errs []error
	if c.Sensors.Count < 1 {
		errs = append(errs, fmt.Errorf("sensors.count must be at least 1, got %d", c.Sensors.Count))
	}
	if c.Sensors.Period <= 0 {
		errs = append(errs, fmt.Errorf("sensors.period must be positive, got %v", c.Sensors.Period))
	}
	if c.Sensors.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("sensors.windowSize must be at least 1, got %d", c.Sensors.WindowSize))
	}
	if c.Sensors.BatchPeriod <= 0 {
		errs = append(errs, fmt.Errorf("sensors.batchPeriod must be positive, got %v", c.Sensors.BatchPeriod))
	}
	if c.Sensors.SmoothingSpan < 1 {
		errs = append(errs, fmt.Errorf("sensors.smoothingSpan must be at least 1, got %v", c.Sensors.SmoothingSpan))
	}
	if c.Plumbing.Width < 1 {
		errs = append(errs, fmt.Errorf("plumbing.width must be at least 1, got %d", c.Plumbing.Width))
	}
	if c.Plumbing.ReliefCount < 1 {
		errs = append(errs, fmt.Errorf("plumbing.reliefCount must be at least 1, got %d", c.Plumbing.ReliefCount))
	}
	return multierr.Combine(errs...)
}

func (g *GlobalConfig) Get() Config {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return *g.conf
}

// OnChange registers fn to be called with the new configuration after every reload.
func (g *GlobalConfig) OnChange(fn func(Config)) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.listeners = append(g.listeners, fn)
}

func (g *GlobalConfig) set(conf *Config) {
	g.lock.Lock()
	g.conf = conf
	listeners := append([]func(Config){}, g.listeners...)
	g.lock.Unlock()
	for _, fn := range listeners {
		fn(*conf)
	}
}

func withDefaults(conf *Config) error {
	defaults := DefaultConfig()
	if err := mergo.Merge(conf, defaults); err != nil {
		return fmt.Errorf("failed to apply configuration defaults. %w", err)
	}
	return conf.Validate()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("failed unmarshal configuration file. %w", err)
	}
	if err := withDefaults(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// LoadConfig reads the YAML file at path. An empty path yields the defaults. Reloads that fail
// keep the previous configuration and are reported to onErrorReloading.
func LoadConfig(path string, onErrorReloading func(error)) (*GlobalConfig, error) {
	r := &GlobalConfig{
		lock: new(sync.RWMutex),
	}
	if path == "" {
		conf := DefaultConfig()
		r.conf = &conf
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration file. %w", err)
	}
	conf, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	r.conf = conf
	v.OnConfigChange(func(e fsnotify.Event) {
		cf, err := unmarshal(v)
		if err != nil {
			if onErrorReloading != nil {
				onErrorReloading(err)
			}
			return
		}
		r.set(cf)
	})
	v.WatchConfig()
	return r, nil
}
