package facts

import (
	"context"
	"sort"

	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/w31r4/gowhy/internal/why"
)

// Sockets enumerates listening TCP sockets system-wide.
type Sockets struct{}

// ListListening returns every TCP socket in the listening state, sorted
// by port then pid so repeated queries render identically.
func (Sockets) ListListening(ctx context.Context) ([]why.ListeningSocket, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return nil, &why.ProviderUnavailableError{Op: "sockets", Err: err}
	}

	var socks []why.ListeningSocket
	for _, conn := range conns {
		// Some platforms report listeners with an empty or NONE status.
		switch conn.Status {
		case "LISTEN", "NONE", "":
		default:
			continue
		}
		if conn.Laddr.Port == 0 {
			continue
		}
		socks = append(socks, why.ListeningSocket{
			PID:  int(conn.Pid),
			IP:   conn.Laddr.IP,
			Port: int(conn.Laddr.Port),
		})
	}
	sort.Slice(socks, func(i, j int) bool {
		if socks[i].Port != socks[j].Port {
			return socks[i].Port < socks[j].Port
		}
		return socks[i].PID < socks[j].PID
	})
	return socks, nil
}
