package jointspace

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sabhiram/go-wol/wol"
)

// MagicPacket returns the Wake-on-LAN payload for mac.
func MagicPacket(mac string) ([]byte, error) {
	mp, err := wol.New(mac)
	if err != nil {
		return nil, fmt.Errorf("parsing mac %q: %w", mac, err)
	}
	b, err := mp.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshaling magic packet: %w", err)
	}
	return b, nil
}

// WakeOnLan broadcasts the magic packet. The first packet is sent before returning,
// the remaining WakeRequests-1 follow in the background, WakeTimeout apart.
func (c *Client) WakeOnLan(ctx context.Context) error {
	packet, err := MagicPacket(c.endpoint.MAC)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(c.endpoint.Broadcast, fmt.Sprint(c.endpoint.WakePort))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return fmt.Errorf("%w: dialing %s: %v", ErrRefused, addr, err)
	}

	if err := sendPacket(conn, packet); err != nil {
		conn.Close()
		return err
	}

	if c.endpoint.WakeRequests <= 1 {
		return conn.Close()
	}

	go func() {
		defer conn.Close()

		for i := 1; i < c.endpoint.WakeRequests; i++ {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.endpoint.WakeTimeout):
			}

			if err := sendPacket(conn, packet); err != nil {
				c.Logger.Debug().Err(err).Int("request", i+1).Msg("Repeating magic packet failed")
				return
			}
		}
	}()
	return nil
}

func sendPacket(conn net.Conn, packet []byte) error {
	n, err := conn.Write(packet)
	if err != nil {
		return fmt.Errorf("%w: sending magic packet: %v", ErrRefused, err)
	}
	if n != len(packet) {
		return fmt.Errorf("sending magic packet: short write of %d bytes", n)
	}
	return nil
}
