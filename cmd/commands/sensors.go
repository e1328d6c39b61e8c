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

package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/numaproj/edgeflow"
	"github.com/numaproj/edgeflow/pkg/config"
	"github.com/numaproj/edgeflow/pkg/metrics"
	"github.com/numaproj/edgeflow/pkg/sensors"
	"github.com/numaproj/edgeflow/pkg/shared/logging"
	"github.com/numaproj/edgeflow/pkg/stream"
)

func NewSensorsCommand() *cobra.Command {
	var (
		configPath  string
		metricsAddr string
		seed        int64
		duration    time.Duration
	)
	command := &cobra.Command{
		Use:   "sensors",
		Short: "Run the simulated sensor pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger().Named("sensors")
			v := edgeflow.GetVersion()
			logger.Infow("Starting sensor pipeline", "version", v)
			metrics.BuildInfo.WithLabelValues("sensors", v.Version, v.Platform).Set(1)
			conf, err := config.LoadConfig(configPath, func(err error) {
				logger.Errorw("Failed to reload configuration", zap.Error(err))
			})
			if err != nil {
				return err
			}
			c := conf.Get()

			ctx, stop := signal.NotifyContext(logging.WithLogger(context.Background(), logger), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			rt, err := stream.NewRuntime(ctx,
				stream.WithParallelChannelBuffer(c.Plumbing.ParallelChannelBuffer),
				stream.WithConcurrentBarrierCapacity(c.Plumbing.ConcurrentBarrierCapacity),
				stream.WithUnorderedWorkers(c.Plumbing.UnorderedWorkers),
			)
			if err != nil {
				return err
			}
			var opts []sensors.Option
			if cmd.Flags().Changed("seed") {
				opts = append(opts, sensors.WithSeed(seed))
			}
			p, err := sensors.New(rt, c, cmd.OutOrStdout(), opts...)
			if err != nil {
				_ = rt.Shutdown()
				return err
			}
			conf.OnChange(func(c config.Config) {
				if err := p.Apply(c); err != nil {
					logger.Errorw("Failed to apply configuration", zap.Error(err))
				}
			})

			addr := c.Metrics.Addr
			if cmd.Flags().Changed("metrics-addr") {
				addr = metricsAddr
			}
			ms := metrics.NewMetricsServer(
				metrics.WithAddr(addr),
				metrics.WithPprof(c.Metrics.Pprof),
				metrics.WithHealthCheckExecutor(rt.Err),
			)
			stopMetrics, err := ms.Start(ctx)
			if err != nil {
				_ = rt.Shutdown()
				return err
			}

			// a stage failure is reported again by Shutdown
			_ = rt.Wait()
			err = rt.Shutdown()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := stopMetrics(shutdownCtx); serr != nil && !errors.Is(serr, context.DeadlineExceeded) {
				logger.Warnw("Failed to stop the metrics server", zap.Error(serr))
			}
			logger.Infow("Sensor pipeline stopped", "stats", p.Stats())
			return err
		},
	}
	command.Flags().StringVar(&configPath, "config", "", "Path of the YAML configuration file, defaults apply when empty")
	command.Flags().StringVar(&metricsAddr, "metrics-addr", metrics.DefaultMetricsAddr, "Address of the metrics server")
	command.Flags().Int64Var(&seed, "seed", 0, "Seed of the simulated readings")
	command.Flags().DurationVar(&duration, "duration", 0, "Stop after this long, runs until interrupted when 0")
	return command
}
