package netinfo

import (
	"errors"
	"testing"
)

func TestLANAddr(t *testing.T) {
	ip, err := LANAddr()
	if errors.Is(err, ErrNoLANAddress) {
		t.Skip("no LAN interface in this environment")
	}
	if err != nil {
		t.Fatalf("LANAddr: %v", err)
	}
	if ip.To4() == nil {
		t.Errorf("expected an IPv4 address, got %v", ip)
	}
	if ip.IsLoopback() {
		t.Errorf("loopback should be skipped, got %v", ip)
	}
}
