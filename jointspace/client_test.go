package jointspace_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brutella/hkphilipstv/jointspace"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *jointspace.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return jointspace.NewClientWithURL(jointspace.Endpoint{MAC: "aa:bb:cc:dd:ee:ff"}, server.URL+"/6")
}

func TestClient_PowerState(t *testing.T) {
	tests := []struct {
		state string
		want  bool
	}{
		{"On", true},
		{"Standby", false},
		{"StandbyKeep", false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/6/powerstate", r.URL.Path)
				json.NewEncoder(w).Encode(map[string]string{"powerstate": tt.state})
			})

			on, err := client.PowerState(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, on)
		})
	}
}

func TestClient_SetPowerState(t *testing.T) {
	var body map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/6/powerstate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	})

	require.NoError(t, client.SetPowerState(context.Background(), false))
	assert.Equal(t, "Standby", body["powerstate"])
}

func TestClient_Volume(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/6/audio/volume", r.URL.Path)
		w.Write([]byte(`{"muted":true,"current":12,"min":0,"max":60}`))
	})

	v, err := client.Volume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jointspace.Volume{Muted: true, Current: 12, Max: 60}, v)
}

func TestClient_SetMute(t *testing.T) {
	var body map[string]bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/6/audio/volume", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	})

	require.NoError(t, client.SetMute(context.Background(), true))
	assert.Equal(t, map[string]bool{"muted": true}, body)
}

func TestClient_SendKey(t *testing.T) {
	var body map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/6/input/key", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	})

	require.NoError(t, client.SendKey(context.Background(), "CursorUp"))
	assert.Equal(t, "CursorUp", body["key"])
}

func TestClient_AmbilightPlusHue(t *testing.T) {
	var req struct {
		Nodes []struct {
			NodeID int `json:"nodeid"`
		} `json:"nodes"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/6/menuitems/settings/current", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Write([]byte(`{"values":[{"value":{"Nodeid":2131230774,"Controllable":"true","Available":"true","data":{"value":true}}}],"version":1}`))
	})

	on, err := client.AmbilightPlusHue(context.Background())
	require.NoError(t, err)
	assert.True(t, on)
	require.Len(t, req.Nodes, 1)
	assert.Equal(t, 2131230774, req.Nodes[0].NodeID)
}

func TestClient_AmbilightPlusHueOff(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"values":[{"value":{"Nodeid":2131230774,"Controllable":"false","Available":"true","string":"","data":{"value":false}}}]}`))
	})

	on, err := client.AmbilightPlusHue(context.Background())
	require.NoError(t, err)
	assert.False(t, on)
}

func TestClient_AmbilightPlusHueEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"values":[]}`))
	})

	_, err := client.AmbilightPlusHue(context.Background())
	assert.ErrorIs(t, err, jointspace.ErrUnexpectedStatus)
}

func TestClient_SetAmbilightPlusHue(t *testing.T) {
	var body struct {
		Values []struct {
			Value struct {
				NodeID       int    `json:"Nodeid"`
				Controllable string `json:"Controllable"`
				Available    string `json:"Available"`
				Data         struct {
					Value bool `json:"value"`
				} `json:"data"`
			} `json:"value"`
		} `json:"values"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/6/menuitems/settings/update", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	})

	require.NoError(t, client.SetAmbilightPlusHue(context.Background(), true))
	require.Len(t, body.Values, 1)
	assert.Equal(t, 2131230774, body.Values[0].Value.NodeID)
	assert.Equal(t, "true", body.Values[0].Value.Controllable)
	assert.Equal(t, "true", body.Values[0].Value.Available)
	assert.True(t, body.Values[0].Value.Data.Value)
}

func TestClient_SetAmbilightStyle(t *testing.T) {
	tests := []struct {
		name  string
		style jointspace.AmbilightStyle
		want  map[string]any
	}{
		{
			name:  "menu setting",
			style: jointspace.AmbilightStyle{Type: "FOLLOW_VIDEO", Value: "STANDARD"},
			want:  map[string]any{"styleName": "FOLLOW_VIDEO", "isExpert": false, "menuSetting": "STANDARD"},
		},
		{
			name:  "string value",
			style: jointspace.AmbilightStyle{Type: "Lounge light", String: "ISF"},
			want:  map[string]any{"styleName": "Lounge light", "isExpert": false, "stringValue": "ISF"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/6/ambilight/currentconfiguration", r.URL.Path)
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			})

			require.NoError(t, client.SetAmbilightStyle(context.Background(), tt.style))
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestClient_UnexpectedStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	})

	_, err := client.PowerState(context.Background())
	assert.ErrorIs(t, err, jointspace.ErrUnexpectedStatus)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)
	client.ReadTimeout = 20 * time.Millisecond

	_, err := client.PowerState(context.Background())
	assert.ErrorIs(t, err, jointspace.ErrTimeout)
}

func TestClient_Refused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := jointspace.NewClientWithURL(jointspace.Endpoint{}, url+"/6")
	err := client.SendKey(context.Background(), "Back")
	assert.ErrorIs(t, err, jointspace.ErrRefused)
}

func TestMagicPacket(t *testing.T) {
	packet, err := jointspace.MagicPacket("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	require.Len(t, packet, 102)

	for i := 0; i < 6; i++ {
		assert.Equal(t, byte(0xFF), packet[i])
	}
	for i := 0; i < 16; i++ {
		assert.Equal(t, []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, packet[6+i*6:12+i*6])
	}

	_, err = jointspace.MagicPacket("not-a-mac")
	assert.Error(t, err)
}

func TestClient_WakeOnLan(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	port := conn.LocalAddr().(*net.UDPAddr).Port
	client := jointspace.NewClient(jointspace.Endpoint{
		IP:           "127.0.0.1",
		MAC:          "00:11:22:33:44:55",
		Broadcast:    "127.0.0.1",
		WakePort:     port,
		WakeRequests: 2,
		WakeTimeout:  time.Millisecond,
	})

	require.NoError(t, client.WakeOnLan(context.Background()))

	want, err := jointspace.MagicPacket("00:11:22:33:44:55")
	require.NoError(t, err)

	buf := make([]byte, 256)
	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		n, _, err := conn.ReadFrom(buf)
		require.NoError(t, err)
		assert.Equal(t, want, buf[:n])
	}
}

func TestClient_WakeOnLanRepeatsInBackground(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	client := jointspace.NewClient(jointspace.Endpoint{
		IP:           "127.0.0.1",
		MAC:          "00:11:22:33:44:55",
		Broadcast:    "127.0.0.1",
		WakePort:     conn.LocalAddr().(*net.UDPAddr).Port,
		WakeRequests: 3,
		WakeTimeout:  200 * time.Millisecond,
	})

	start := time.Now()
	require.NoError(t, client.WakeOnLan(context.Background()))
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	buf := make([]byte, 256)
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, err := conn.ReadFrom(buf)
		require.NoError(t, err)
		assert.Equal(t, 102, n)
	}
}

func TestClient_WakeOnLanStopsRepeatingOnCancel(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	client := jointspace.NewClient(jointspace.Endpoint{
		IP:           "127.0.0.1",
		MAC:          "00:11:22:33:44:55",
		Broadcast:    "127.0.0.1",
		WakePort:     conn.LocalAddr().(*net.UDPAddr).Port,
		WakeRequests: 3,
		WakeTimeout:  100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, client.WakeOnLan(ctx))
	cancel()

	buf := make([]byte, 256)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = conn.ReadFrom(buf)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err = conn.ReadFrom(buf)
	assert.Error(t, err)
}
