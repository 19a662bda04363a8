package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"

	"github.com/brutella/hc"
	hclog "github.com/brutella/hc/log"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/brutella/hkphilipstv/config"
	"github.com/brutella/hkphilipstv/homekit"
	"github.com/brutella/hkphilipstv/jointspace"
	"github.com/brutella/hkphilipstv/reconciler"
)

type HKTelevision struct {
	tv         *homekit.Television
	reconciler *reconciler.Reconciler
	transport  hc.Transport
}

var (
	televisions map[string]*HKTelevision
	pin         string
	storagePath string
)

func NewDevice(ctx context.Context, device config.Device) (*HKTelevision, error) {
	logger := log.With().Str("device", device.Name).Logger()

	interval, err := device.Interval()
	if err != nil {
		return nil, err
	}
	wakeTimeout, err := device.WakeTimeout()
	if err != nil {
		return nil, err
	}

	client := jointspace.NewClient(jointspace.Endpoint{
		IP:           device.IP,
		MAC:          device.MAC,
		Port:         device.Port,
		APIVersion:   device.APIVersion,
		Broadcast:    device.Broadcast,
		WakeRequests: device.WakeOnLan.Requests,
		WakeTimeout:  wakeTimeout,
	})
	client.Logger = logger

	opts := homekit.Options{
		Name:             device.Name,
		Model:            device.Model,
		MAC:              device.MAC,
		AmbilightHue:     device.AmbilightHue.Enabled,
		AmbilightHueName: device.AmbilightHue.Name,
	}
	styles := make([]jointspace.AmbilightStyle, 0, len(device.AmbilightStyles))
	for _, s := range device.AmbilightStyles {
		opts.Styles = append(opts.Styles, s.Name)
		styles = append(styles, jointspace.AmbilightStyle{Type: s.Type, Value: s.Value, String: s.String})
	}

	tv := homekit.NewTelevision(opts, logger)
	r := reconciler.New(client, tv, reconciler.Config{
		Capabilities: reconciler.Capabilities{
			AmbilightHue: device.AmbilightHue.Enabled,
			PowerOff:     device.PowerOff,
		},
		PlayPauseKey: device.PlayPauseKey,
		Styles:       styles,
		Interval:     interval,
		Logger:       logger,
	})
	tv.Bind(ctx, r)

	// A television must be published on its own transport, not behind a bridge.
	// Pairings are keyed by the serial number so that renaming a device keeps them.
	cfg := hc.Config{
		Pin:         pin,
		StoragePath: filepath.Join(storagePath, homekit.SerialNumber(device.MAC)),
	}
	transport, err := hc.NewIPTransport(cfg, tv.Accessory)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("ip", device.IP).Dur("interval", interval).Msg("Adding television")

	return &HKTelevision{tv, r, transport}, nil
}

func main() {
	televisions = map[string]*HKTelevision{}

	configArg := flag.String("config", "hkphilipstv.yml", "Path to the device configuration file")
	pinArg := flag.String("pin", "00102003", "PIN used to pair the televisions with HomeKit")
	dbArg := flag.String("db", "./db", "Directory for HomeKit pairing data")
	verboseArg := flag.Bool("v", false, "Enable verbose debug logging")

	flag.Parse()

	pin = *pinArg
	storagePath = *dbArg

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configArg)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configArg).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}
	if *verboseArg {
		level = zerolog.DebugLevel
		hclog.Debug.Enable()
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, device := range cfg.Devices {
		hkTV, err := NewDevice(ctx, device)
		if err != nil {
			log.Fatal().Err(err).Str("device", device.Name).Msg("Failed to create television")
		}
		televisions[device.Name] = hkTV
	}

	hc.OnTermination(func() {
		log.Info().Msg("Shutting down...")
		for _, hkTV := range televisions {
			<-hkTV.transport.Stop()
		}
		cancel()
	})

	g, ctx := errgroup.WithContext(ctx)
	for _, hkTV := range televisions {
		go hkTV.transport.Start()
		g.Go(func() error {
			return hkTV.reconciler.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Stopped")
		os.Exit(1)
	}
}
