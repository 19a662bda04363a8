// Package jointspace talks to the local JointSpace HTTP API of Philips televisions.
package jointspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultPort       = 1925
	DefaultAPIVersion = 6
	DefaultWakePort   = 9

	// ReadTimeout bounds state queries, WriteTimeout bounds commands.
	ReadTimeout  = 750 * time.Millisecond
	WriteTimeout = 2 * time.Second

	// Menu node holding the Ambilight + Hue toggle.
	ambilightHueNode = 2131230774

	powerOn      = "On"
	powerStandby = "Standby"
)

// Endpoint addresses one television. It is not modified after NewClient.
type Endpoint struct {
	IP         string
	MAC        string
	Port       int
	APIVersion int

	Broadcast    string
	WakePort     int
	WakeRequests int
	WakeTimeout  time.Duration
}

type Client struct {
	endpoint   Endpoint
	baseURL    string
	httpClient *http.Client

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Logger zerolog.Logger
}

// Volume is the response of GET audio/volume.
type Volume struct {
	Muted   bool `json:"muted"`
	Current int  `json:"current"`
	Min     int  `json:"min"`
	Max     int  `json:"max"`
}

// AmbilightStyle is one entry of ambilight/currentconfiguration.
type AmbilightStyle struct {
	Type   string
	Value  string
	String string
}

func NewClient(endpoint Endpoint) *Client {
	endpoint = endpoint.withDefaults()
	baseURL := fmt.Sprintf("http://%s/%d", net.JoinHostPort(endpoint.IP, fmt.Sprint(endpoint.Port)), endpoint.APIVersion)
	return NewClientWithURL(endpoint, baseURL)
}

// NewClientWithURL uses baseURL instead of the address derived from the endpoint.
func NewClientWithURL(endpoint Endpoint, baseURL string) *Client {
	return &Client{
		endpoint:     endpoint.withDefaults(),
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{},
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		Logger:       zerolog.Nop(),
	}
}

func (e Endpoint) withDefaults() Endpoint {
	if e.Port == 0 {
		e.Port = DefaultPort
	}
	if e.APIVersion == 0 {
		e.APIVersion = DefaultAPIVersion
	}
	if e.Broadcast == "" {
		e.Broadcast = "255.255.255.255"
	}
	if e.WakePort == 0 {
		e.WakePort = DefaultWakePort
	}
	if e.WakeRequests == 0 {
		e.WakeRequests = 1
	}
	return e
}

// PowerState reports whether the television is on. Standby counts as off.
func (c *Client) PowerState(ctx context.Context) (bool, error) {
	var resp struct {
		PowerState string `json:"powerstate"`
	}
	if err := c.get(ctx, "powerstate", &resp); err != nil {
		return false, fmt.Errorf("getting power state: %w", err)
	}
	return resp.PowerState == powerOn, nil
}

func (c *Client) SetPowerState(ctx context.Context, on bool) error {
	state := powerStandby
	if on {
		state = powerOn
	}
	body := map[string]string{"powerstate": state}
	if err := c.post(ctx, "powerstate", body, nil); err != nil {
		return fmt.Errorf("setting power state: %w", err)
	}
	return nil
}

func (c *Client) Volume(ctx context.Context) (Volume, error) {
	var v Volume
	if err := c.get(ctx, "audio/volume", &v); err != nil {
		return Volume{}, fmt.Errorf("getting volume: %w", err)
	}
	return v, nil
}

func (c *Client) SetMute(ctx context.Context, muted bool) error {
	body := map[string]bool{"muted": muted}
	if err := c.post(ctx, "audio/volume", body, nil); err != nil {
		return fmt.Errorf("setting mute: %w", err)
	}
	return nil
}

// SendKey presses a remote key, e.g. "CursorUp" or "VolumeDown".
func (c *Client) SendKey(ctx context.Context, key string) error {
	body := map[string]string{"key": key}
	if err := c.post(ctx, "input/key", body, nil); err != nil {
		return fmt.Errorf("sending key %s: %w", key, err)
	}
	return nil
}

type menuNode struct {
	NodeID int `json:"nodeid"`
}

// menuState is the part of a menuitems/settings/current entry that is read back.
type menuState struct {
	Value struct {
		Data struct {
			Value bool `json:"value"`
		} `json:"data"`
	} `json:"value"`
}

// menuUpdate is one entry of menuitems/settings/update. The TV encodes the flags as strings.
type menuUpdate struct {
	Value struct {
		NodeID       int    `json:"Nodeid"`
		Controllable string `json:"Controllable"`
		Available    string `json:"Available"`
		Data         struct {
			Value bool `json:"value"`
		} `json:"data"`
	} `json:"value"`
}

func (c *Client) AmbilightPlusHue(ctx context.Context) (bool, error) {
	req := struct {
		Nodes []menuNode `json:"nodes"`
	}{
		Nodes: []menuNode{{NodeID: ambilightHueNode}},
	}
	var resp struct {
		Values []menuState `json:"values"`
	}

	// The settings API answers reads through POST.
	if err := c.do(ctx, http.MethodPost, "menuitems/settings/current", req, &resp, c.ReadTimeout); err != nil {
		return false, fmt.Errorf("getting ambilight+hue: %w", err)
	}
	if len(resp.Values) == 0 {
		return false, fmt.Errorf("getting ambilight+hue: %w: no values in response", ErrUnexpectedStatus)
	}
	return resp.Values[0].Value.Data.Value, nil
}

func (c *Client) SetAmbilightPlusHue(ctx context.Context, on bool) error {
	var v menuUpdate
	v.Value.NodeID = ambilightHueNode
	v.Value.Controllable = "true"
	v.Value.Available = "true"
	v.Value.Data.Value = on

	req := struct {
		Values []menuUpdate `json:"values"`
	}{
		Values: []menuUpdate{v},
	}
	if err := c.post(ctx, "menuitems/settings/update", req, nil); err != nil {
		return fmt.Errorf("setting ambilight+hue: %w", err)
	}
	return nil
}

func (c *Client) SetAmbilightStyle(ctx context.Context, style AmbilightStyle) error {
	body := map[string]any{
		"styleName": style.Type,
		"isExpert":  false,
	}
	if style.String != "" {
		body["stringValue"] = style.String
	} else {
		body["menuSetting"] = style.Value
	}
	if err := c.post(ctx, "ambilight/currentconfiguration", body, nil); err != nil {
		return fmt.Errorf("setting ambilight style %s: %w", style.Type, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, c.ReadTimeout)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out, c.WriteTimeout)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s %s returned %d", ErrUnexpectedStatus, method, path, resp.StatusCode)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUnexpectedStatus, path, err)
	}
	return nil
}

// classify maps transport errors onto ErrTimeout or ErrRefused.
func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrRefused, err)
}
