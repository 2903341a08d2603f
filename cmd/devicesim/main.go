package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mqttadapter "github.com/samirrijal/picplace/internal/adapters/mqtt"
	natsadapter "github.com/samirrijal/picplace/internal/adapters/nats"
	"github.com/samirrijal/picplace/internal/pkg/config"
	"github.com/samirrijal/picplace/internal/pkg/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts simOptions

	root := &cobra.Command{
		Use:           "devicesim",
		Short:         "Publish synthetic device location fixes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.DeviceID, "device", "sim-device", "device id")
	flags.DurationVar(&opts.Interval, "interval", time.Second, "time between fixes")
	flags.Float64Var(&opts.Target.Lat, "lat", 43.2630, "latitude fixes drift around")
	flags.Float64Var(&opts.Target.Lon, "lon", -2.9350, "longitude fixes drift around")
	flags.Float64Var(&opts.RadiusMeters, "radius", 50, "maximum drift from the target in meters")
	flags.Float64Var(&opts.NearRatio, "near-ratio", 1, "share of fixes placed near the target, the rest are random")
	flags.IntVar(&opts.Count, "count", 0, "stop after this many fixes (0 = until interrupted)")

	root.AddCommand(newNATSCmd(&opts), newMQTTCmd(&opts))
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load("picplace-devicesim")
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log.Level, "text")
	return cfg, nil
}

func newNATSCmd(opts *simOptions) *cobra.Command {
	var url, subject string

	cmd := &cobra.Command{
		Use:   "nats",
		Short: "Publish fixes to the NATS device subject",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.NATS.URL
			}
			if subject == "" {
				subject = strings.Replace(cfg.NATS.DeviceSubject, "*", opts.DeviceID, 1)
			}

			nc, err := natsadapter.Connect(url, "picplace-devicesim")
			if err != nil {
				return err
			}
			defer nc.Close()

			slog.Info("publishing fixes", "transport", "nats", "subject", subject, "interval", opts.Interval)
			return run(cmd.Context(), opts, subject, func(dest string, payload []byte) error {
				return nc.Publish(dest, payload)
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "NATS url (default from config)")
	cmd.Flags().StringVar(&subject, "subject", "", "subject to publish to (default from nats.device_subject)")
	return cmd
}

func newMQTTCmd(opts *simOptions) *cobra.Command {
	var broker, topic string
	var qos uint8

	cmd := &cobra.Command{
		Use:   "mqtt",
		Short: "Publish fixes to the MQTT device topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if broker == "" {
				broker = cfg.MQTT.Broker
			}
			if topic == "" {
				topic = strings.Replace(cfg.MQTT.Topic, "+", opts.DeviceID, 1)
			}

			client, err := mqttadapter.Connect(mqttadapter.Options{
				Broker:   broker,
				ClientID: "picplace-devicesim-" + opts.DeviceID,
				Username: cfg.MQTT.Username,
				Password: cfg.MQTT.Password,
			})
			if err != nil {
				return err
			}
			defer client.Disconnect(250)

			slog.Info("publishing fixes", "transport", "mqtt", "topic", topic, "interval", opts.Interval)
			return run(cmd.Context(), opts, topic, func(dest string, payload []byte) error {
				token := client.Publish(dest, qos, false, payload)
				token.Wait()
				return token.Error()
			})
		},
	}
	cmd.Flags().StringVar(&broker, "broker", "", "MQTT broker (default from config)")
	cmd.Flags().StringVar(&topic, "topic", "", "topic to publish to (default from mqtt.topic)")
	cmd.Flags().Uint8Var(&qos, "qos", 1, "MQTT QoS")
	return cmd
}

// run publishes fixes until ctx ends, SIGINT arrives or opts.Count is reached.
func run(ctx context.Context, opts *simOptions, dest string, publish func(dest string, payload []byte) error) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := newGenerator(*opts, rand.New(rand.NewSource(time.Now().UnixNano())))
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for sent := 0; opts.Count == 0 || sent < opts.Count; sent++ {
		fix, payload, err := gen.next(time.Now())
		if err != nil {
			return err
		}
		if err := publish(dest, payload); err != nil {
			slog.Warn("publish failed", "error", err)
		} else {
			slog.Info("published fix", "dest", dest, "lat", fix.Lat, "lon", fix.Lon)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
