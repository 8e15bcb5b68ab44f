package net

import (
	"fmt"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_sharedboard._tcp"

// Host is a board found on the local network.
type Host struct {
	Name string
	Addr string
	Room string
}

// Advertise announces a host listening on port. The room name travels in the
// TXT record.
func Advertise(port int, room string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, nil, []string{"room=" + room})
	if err != nil {
		return nil, fmt.Errorf("mdns service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("mdns server: %w", err)
	}
	return server, nil
}

// Browse collects the hosts answering within timeout, sorted by address.
func Browse(timeout time.Duration) ([]Host, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan []Host)
	go func() {
		var hosts []Host
		for e := range entries {
			if h, ok := hostOf(e); ok && !slices.ContainsFunc(hosts, func(x Host) bool { return x.Addr == h.Addr }) {
				hosts = append(hosts, h)
			}
		}
		done <- hosts
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	hosts := <-done
	if err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	slices.SortFunc(hosts, func(a, b Host) int { return strings.Compare(a.Addr, b.Addr) })
	return hosts, nil
}

func hostOf(e *mdns.ServiceEntry) (Host, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Host{}, false
	}
	h := Host{
		Name: e.Host,
		Addr: net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port)),
	}
	for _, f := range e.InfoFields {
		if v, ok := strings.CutPrefix(f, "room="); ok {
			h.Room = v
		}
	}
	return h, true
}
