// Package homekit publishes a television as a HomeKit accessory.
package homekit

import (
	"context"

	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/characteristic"
	"github.com/brutella/hc/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/brutella/hkphilipstv/reconciler"
)

// Controller receives the state changes requested from HomeKit.
type Controller interface {
	SetPower(ctx context.Context, on bool)
	SendRemoteCommand(ctx context.Context, cmd reconciler.RemoteCommand)
	SetMute(ctx context.Context, muted bool)
	SetAmbilightHue(ctx context.Context, on bool)
	SelectAmbilightStyle(ctx context.Context, id int)
}

type Options struct {
	Name  string
	Model string
	MAC   string

	AmbilightHue     bool
	AmbilightHueName string

	// Styles are the input source names, identified by their 1-based position.
	Styles []string
}

// Television is a HomeKit television with speaker, optional Ambilight + Hue light and
// one input source per Ambilight style.
type Television struct {
	*accessory.Accessory

	Television   *TelevisionSvc
	Speaker      *SpeakerSvc
	AmbilightHue *LightSvc
	Inputs       []*InputSourceSvc

	ctx        context.Context
	controller Controller
	log        zerolog.Logger
}

type TelevisionSvc struct {
	*service.Service

	Active             *characteristic.Active
	ActiveIdentifier   *characteristic.ActiveIdentifier
	ConfiguredName     *characteristic.ConfiguredName
	SleepDiscoveryMode *characteristic.SleepDiscoveryMode
	RemoteKey          *characteristic.RemoteKey
}

type SpeakerSvc struct {
	*service.Service

	Mute              *characteristic.Mute
	Active            *characteristic.Active
	VolumeControlType *characteristic.VolumeControlType
	VolumeSelector    *characteristic.VolumeSelector
}

type LightSvc struct {
	*service.Service

	On   *characteristic.On
	Name *characteristic.Name
}

type InputSourceSvc struct {
	*service.Service

	Identifier             *characteristic.Identifier
	ConfiguredName         *characteristic.ConfiguredName
	Name                   *characteristic.Name
	IsConfigured           *characteristic.IsConfigured
	InputSourceType        *characteristic.InputSourceType
	CurrentVisibilityState *characteristic.CurrentVisibilityState
}

// SerialNumber derives a stable serial number from the MAC address.
func SerialNumber(mac string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("hkphilipstv:"+mac)).String()
}

func NewTelevision(opts Options, log zerolog.Logger) *Television {
	model := opts.Model
	if model == "" {
		model = "JointSpace"
	}
	info := accessory.Info{
		Name:         opts.Name,
		SerialNumber: SerialNumber(opts.MAC),
		Manufacturer: "Philips",
		Model:        model,
	}

	tv := Television{log: log}
	tv.Accessory = accessory.New(info, accessory.TypeTelevision)

	tv.Television = NewTelevisionSvc(opts.Name)
	tv.AddService(tv.Television.Service)

	tv.Speaker = NewSpeakerSvc()
	tv.AddService(tv.Speaker.Service)

	if opts.AmbilightHue {
		tv.AmbilightHue = NewLightSvc(opts.AmbilightHueName)
		tv.AddService(tv.AmbilightHue.Service)
	}

	for i, name := range opts.Styles {
		input := NewInputSourceSvc(i+1, name)
		tv.AddService(input.Service)
		tv.Television.AddLinkedService(input.Service)
		tv.Inputs = append(tv.Inputs, input)
	}

	return &tv
}

func NewTelevisionSvc(name string) *TelevisionSvc {
	svc := TelevisionSvc{}
	svc.Service = service.New(service.TypeTelevision)

	svc.Active = characteristic.NewActive()
	svc.AddCharacteristic(svc.Active.Characteristic)
	svc.Active.SetValue(characteristic.ActiveInactive)

	svc.ActiveIdentifier = characteristic.NewActiveIdentifier()
	svc.AddCharacteristic(svc.ActiveIdentifier.Characteristic)
	svc.ActiveIdentifier.SetValue(1)

	svc.ConfiguredName = characteristic.NewConfiguredName()
	svc.AddCharacteristic(svc.ConfiguredName.Characteristic)
	svc.ConfiguredName.SetValue(name)

	svc.SleepDiscoveryMode = characteristic.NewSleepDiscoveryMode()
	svc.AddCharacteristic(svc.SleepDiscoveryMode.Characteristic)
	svc.SleepDiscoveryMode.SetValue(characteristic.SleepDiscoveryModeAlwaysDiscoverable)

	svc.RemoteKey = characteristic.NewRemoteKey()
	svc.AddCharacteristic(svc.RemoteKey.Characteristic)

	return &svc
}

func NewSpeakerSvc() *SpeakerSvc {
	svc := SpeakerSvc{}
	svc.Service = service.New(service.TypeSpeaker)

	svc.Mute = characteristic.NewMute()
	svc.AddCharacteristic(svc.Mute.Characteristic)

	svc.Active = characteristic.NewActive()
	svc.AddCharacteristic(svc.Active.Characteristic)
	svc.Active.SetValue(characteristic.ActiveActive)

	svc.VolumeControlType = characteristic.NewVolumeControlType()
	svc.AddCharacteristic(svc.VolumeControlType.Characteristic)
	svc.VolumeControlType.SetValue(characteristic.VolumeControlTypeAbsolute)

	svc.VolumeSelector = characteristic.NewVolumeSelector()
	svc.AddCharacteristic(svc.VolumeSelector.Characteristic)

	return &svc
}

func NewLightSvc(name string) *LightSvc {
	svc := LightSvc{}
	svc.Service = service.New(service.TypeLightbulb)

	svc.On = characteristic.NewOn()
	svc.AddCharacteristic(svc.On.Characteristic)

	svc.Name = characteristic.NewName()
	svc.AddCharacteristic(svc.Name.Characteristic)
	svc.Name.SetValue(name)

	return &svc
}

func NewInputSourceSvc(id int, name string) *InputSourceSvc {
	svc := InputSourceSvc{}
	svc.Service = service.New(service.TypeInputSource)

	svc.Identifier = characteristic.NewIdentifier()
	svc.AddCharacteristic(svc.Identifier.Characteristic)
	svc.Identifier.SetValue(id)

	svc.ConfiguredName = characteristic.NewConfiguredName()
	svc.AddCharacteristic(svc.ConfiguredName.Characteristic)
	svc.ConfiguredName.SetValue(name)

	svc.Name = characteristic.NewName()
	svc.AddCharacteristic(svc.Name.Characteristic)
	svc.Name.SetValue(name)

	svc.IsConfigured = characteristic.NewIsConfigured()
	svc.AddCharacteristic(svc.IsConfigured.Characteristic)
	svc.IsConfigured.SetValue(characteristic.IsConfiguredConfigured)

	svc.InputSourceType = characteristic.NewInputSourceType()
	svc.AddCharacteristic(svc.InputSourceType.Characteristic)
	svc.InputSourceType.SetValue(characteristic.InputSourceTypeOther)

	svc.CurrentVisibilityState = characteristic.NewCurrentVisibilityState()
	svc.AddCharacteristic(svc.CurrentVisibilityState.Characteristic)
	svc.CurrentVisibilityState.SetValue(characteristic.CurrentVisibilityStateShown)

	return &svc
}

// Notify mirrors a reconciler state change into the characteristics.
func (t *Television) Notify(field reconciler.Field, value bool) {
	switch field {
	case reconciler.FieldPower:
		if value {
			t.Television.Active.SetValue(characteristic.ActiveActive)
		} else {
			t.Television.Active.SetValue(characteristic.ActiveInactive)
		}
	case reconciler.FieldMute:
		t.Speaker.Mute.SetValue(value)
	case reconciler.FieldAmbilightHue:
		if t.AmbilightHue != nil {
			t.AmbilightHue.On.SetValue(value)
		}
	default:
		t.log.Warn().Str("field", string(field)).Msg("Unknown field")
	}
}

// Bind forwards HomeKit writes to c. ctx is passed to every call.
func (t *Television) Bind(ctx context.Context, c Controller) {
	t.ctx = ctx
	t.controller = c

	t.Television.Active.OnValueRemoteUpdate(t.onActive)
	t.Television.RemoteKey.OnValueRemoteUpdate(t.onRemoteKey)
	t.Television.ActiveIdentifier.OnValueRemoteUpdate(t.onActiveIdentifier)
	t.Speaker.VolumeSelector.OnValueRemoteUpdate(t.onVolumeSelector)
	t.Speaker.Mute.OnValueRemoteUpdate(t.onMute)

	if t.AmbilightHue != nil {
		t.AmbilightHue.On.OnValueRemoteUpdate(t.onAmbilightHue)
	}
}

func (t *Television) onActive(v int) {
	t.log.Debug().Int("active", v).Msg("Set active")
	t.controller.SetPower(t.ctx, v == characteristic.ActiveActive)
}

func (t *Television) onRemoteKey(v int) {
	cmd, ok := remoteKeyCommands[v]
	if !ok {
		t.log.Error().Int("remote_key", v).Msg("Unsupported key")
		return
	}
	t.controller.SendRemoteCommand(t.ctx, cmd)
}

func (t *Television) onVolumeSelector(v int) {
	cmd, ok := volumeSelectorCommands[v]
	if !ok {
		t.log.Error().Int("volume_selector", v).Msg("Unknown volume selector value")
		return
	}
	t.controller.SendRemoteCommand(t.ctx, cmd)
}

func (t *Television) onActiveIdentifier(v int) {
	t.log.Debug().Int("identifier", v).Msg("Set active identifier")
	t.controller.SelectAmbilightStyle(t.ctx, v)
}

func (t *Television) onMute(muted bool) {
	t.log.Debug().Bool("muted", muted).Msg("Set mute")
	t.controller.SetMute(t.ctx, muted)
}

func (t *Television) onAmbilightHue(on bool) {
	t.controller.SetAmbilightHue(t.ctx, on)
}
