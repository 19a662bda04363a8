// Package reconciler keeps the believed state of one television in sync with the device
// and applies state changes requested from HomeKit.
package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/brutella/hkphilipstv/jointspace"
)

const (
	DefaultInterval    = 15 * time.Second
	DefaultStepDelay   = 20 * time.Millisecond
	DefaultRevertDelay = 20 * time.Millisecond
)

// Field identifies a piece of believed state reported to the host.
type Field string

const (
	FieldPower        Field = "power"
	FieldMute         Field = "mute"
	FieldAmbilightHue Field = "ambilight_hue"
)

// Notifier receives state changes. Implementations must not block.
type Notifier interface {
	Notify(field Field, value bool)
}

// Device is the television's control API.
type Device interface {
	PowerState(ctx context.Context) (bool, error)
	SetPowerState(ctx context.Context, on bool) error
	Volume(ctx context.Context) (jointspace.Volume, error)
	SetMute(ctx context.Context, muted bool) error
	AmbilightPlusHue(ctx context.Context) (bool, error)
	SetAmbilightPlusHue(ctx context.Context, on bool) error
	SetAmbilightStyle(ctx context.Context, style jointspace.AmbilightStyle) error
	SendKey(ctx context.Context, key string) error
	WakeOnLan(ctx context.Context) error
}

// Capabilities enables optional features per television.
type Capabilities struct {
	// AmbilightHue polls and controls the Ambilight + Hue toggle.
	AmbilightHue bool

	// PowerOff sends standby when HomeKit turns the television off.
	// When unset the request is logged and the host is reverted to the cached state.
	PowerOff bool
}

// Belief is the cached, possibly stale view of the television.
type Belief struct {
	Power        bool
	Muted        bool
	AmbilightHue bool
	Responsive   bool
}

type Config struct {
	Capabilities Capabilities

	// PlayPauseKey overrides the native key for PlayPause.
	PlayPauseKey string

	// Styles are addressed by 1-based identifiers.
	Styles []jointspace.AmbilightStyle

	Interval    time.Duration
	StepDelay   time.Duration
	RevertDelay time.Duration

	Logger zerolog.Logger
}

type Reconciler struct {
	device   Device
	notifier Notifier
	cfg      Config
	keys     map[RemoteCommand]string
	log      zerolog.Logger

	mu     sync.Mutex
	belief Belief
}

func New(device Device, notifier Notifier, cfg Config) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = DefaultStepDelay
	}
	if cfg.RevertDelay <= 0 {
		cfg.RevertDelay = DefaultRevertDelay
	}

	return &Reconciler{
		device:   device,
		notifier: notifier,
		cfg:      cfg,
		keys:     KeyMap(cfg.PlayPauseKey),
		log:      cfg.Logger,
	}
}

// Belief returns a snapshot of the cached state.
func (r *Reconciler) Belief() Belief {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.belief
}

// Run refreshes immediately and then on every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		r.Refresh(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Refresh queries power, mute and (if enabled) Ambilight + Hue state.
// A failed power query marks the television unresponsive and off and ends the refresh.
func (r *Reconciler) Refresh(ctx context.Context) {
	r.log.Debug().Msg("Refreshing status")

	on, err := r.device.PowerState(ctx)
	if err != nil {
		if r.setResponsive(false) {
			r.log.Info().Err(err).Msg("Stopped responding")
		} else {
			r.log.Debug().Err(err).Msg("Still not responding")
		}
		if r.set(FieldPower, false) {
			r.log.Info().Msg("TV turned off")
		}
		return
	}

	if r.setResponsive(true) {
		r.log.Info().Msg("Responding")
	}
	if r.set(FieldPower, on) {
		if on {
			r.log.Info().Msg("TV turned on")
		} else {
			r.log.Info().Msg("TV turned off")
		}
	}

	if !r.sleep(ctx, r.cfg.StepDelay) {
		return
	}

	volume, err := r.device.Volume(ctx)
	if err != nil {
		r.log.Debug().Err(err).Msg("Fetching volume failed")
	} else if r.set(FieldMute, volume.Muted) {
		r.log.Info().Bool("muted", volume.Muted).Msg("Mute state changed")
	}

	if !r.cfg.Capabilities.AmbilightHue {
		return
	}

	if !r.sleep(ctx, r.cfg.StepDelay) {
		return
	}

	light, err := r.device.AmbilightPlusHue(ctx)
	if err != nil {
		r.log.Debug().Err(err).Msg("Fetching ambilight+hue state failed")
	} else if r.set(FieldAmbilightHue, light) {
		r.log.Info().Bool("on", light).Msg("Ambilight+hue state changed")
	}
}

// SetPower wakes the television or, if enabled, puts it in standby.
// Waking sets power optimistically so that following commands are not dropped.
func (r *Reconciler) SetPower(ctx context.Context, on bool) {
	r.log.Debug().Bool("on", on).Msg("Set power")

	if on {
		if r.Belief().Power {
			return
		}

		r.log.Debug().Msg("Sending WoL packet")
		if err := r.device.WakeOnLan(ctx); err != nil {
			r.log.Error().Err(err).Msg("Wake on LAN failed")
			go r.revert(ctx, FieldPower)
			return
		}
		r.set(FieldPower, true)
		return
	}

	if !r.cfg.Capabilities.PowerOff {
		r.log.Warn().Msg("Turning off is disabled for this TV, ignoring")
		go r.revert(ctx, FieldPower)
		return
	}

	if err := r.device.SetPowerState(ctx, false); err != nil {
		r.log.Error().Err(err).Msg("Setting power state failed")
		go r.revert(ctx, FieldPower)
		return
	}
	r.set(FieldPower, false)
}

// KeyFor returns the native key for cmd.
func (r *Reconciler) KeyFor(cmd RemoteCommand) (string, error) {
	key, ok := r.keys[cmd]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd)
	}
	return key, nil
}

// SendRemoteCommand presses the key mapped to cmd. Presses are dropped while the television is off
// and not retried on failure.
func (r *Reconciler) SendRemoteCommand(ctx context.Context, cmd RemoteCommand) {
	key, err := r.KeyFor(cmd)
	if err != nil {
		r.log.Error().Err(err).Msg("Unsupported key")
		return
	}

	if !r.Belief().Power {
		r.log.Info().Str("key", key).Msg("TV is off, dropping key")
		return
	}

	r.log.Debug().Str("key", key).Msg("Sending key")
	if err := r.device.SendKey(ctx, key); err != nil {
		r.log.Error().Err(err).Str("key", key).Msg("Sending key failed")
	}
}

// SetMute is sent regardless of power state.
func (r *Reconciler) SetMute(ctx context.Context, muted bool) {
	if err := r.device.SetMute(ctx, muted); err != nil {
		r.log.Error().Err(err).Msg("Setting mute failed")
		return
	}
	r.set(FieldMute, muted)
}

// SetAmbilightHue toggles Ambilight + Hue. While the television is off the host is reverted
// to the cached value.
func (r *Reconciler) SetAmbilightHue(ctx context.Context, on bool) {
	r.log.Info().Bool("on", on).Msg("Set ambilight+hue")

	if !r.Belief().Power {
		r.log.Info().Msg("TV is off, reverting ambilight+hue")
		go r.revert(ctx, FieldAmbilightHue)
		return
	}

	if err := r.device.SetAmbilightPlusHue(ctx, on); err != nil {
		r.log.Error().Err(err).Msg("Setting ambilight+hue failed")
		return
	}
	r.set(FieldAmbilightHue, on)
}

// SelectAmbilightStyle applies the style with the 1-based identifier id.
func (r *Reconciler) SelectAmbilightStyle(ctx context.Context, id int) {
	if id < 1 || id > len(r.cfg.Styles) {
		r.log.Error().Int("identifier", id).Msg("Unknown ambilight style")
		return
	}
	style := r.cfg.Styles[id-1]

	if !r.Belief().Power {
		r.log.Info().Str("style", style.Type).Msg("TV is off, dropping ambilight style")
		return
	}

	if err := r.device.SetAmbilightStyle(ctx, style); err != nil {
		r.log.Error().Err(err).Str("style", style.Type).Msg("Setting ambilight style failed")
	}
}

// set stores value and notifies the host if it changed.
func (r *Reconciler) set(field Field, value bool) bool {
	r.mu.Lock()
	p := r.field(field)
	changed := *p != value
	*p = value
	r.mu.Unlock()

	if changed {
		r.notifier.Notify(field, value)
	}
	return changed
}

func (r *Reconciler) setResponsive(responsive bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := r.belief.Responsive != responsive
	r.belief.Responsive = responsive
	return changed
}

// revert re-notifies the cached value after the revert delay, undoing an optimistic host toggle.
func (r *Reconciler) revert(ctx context.Context, field Field) {
	if !r.sleep(ctx, r.cfg.RevertDelay) {
		return
	}

	r.mu.Lock()
	value := *r.field(field)
	r.mu.Unlock()

	r.notifier.Notify(field, value)
}

// field must be called with mu held.
func (r *Reconciler) field(field Field) *bool {
	switch field {
	case FieldPower:
		return &r.belief.Power
	case FieldMute:
		return &r.belief.Muted
	case FieldAmbilightHue:
		return &r.belief.AmbilightHue
	}
	panic("reconciler: unknown field " + string(field))
}

func (r *Reconciler) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
