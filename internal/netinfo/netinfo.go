// Package netinfo discovers the address other devices on the local network
// should use to reach this machine. The server prints it at startup so the GM
// can hand out player URLs without hunting through ifconfig output.
package netinfo

import (
	"errors"
	"net"
)

// ErrNoLANAddress is returned when no usable interface address was found.
var ErrNoLANAddress = errors.New("netinfo: no LAN address found")

// LANAddr returns the machine's first private IPv4 address on an interface
// that is up and not a loopback. Falls back to any global unicast IPv4 when
// nothing private exists (some VPN-only setups).
func LANAddr() (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var fallback net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil || !ip4.IsGlobalUnicast() {
				continue
			}
			if ip4.IsPrivate() {
				return ip4, nil
			}
			if fallback == nil {
				fallback = ip4
			}
		}
	}

	if fallback != nil {
		return fallback, nil
	}
	return nil, ErrNoLANAddress
}
