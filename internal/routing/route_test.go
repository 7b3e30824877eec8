package routing

import (
	"net/netip"
	"testing"
)

func TestParseRoute(t *testing.T) {
	tests := []struct {
		name      string
		family    Family
		line      string
		wantType  RouteType
		wantDst   string
		wantGw    string
		wantDev   string
		wantTable string
		wantErr   bool
	}{
		{
			name:      "default route with gateway and table",
			family:    V4,
			line:      "default via 100.86.211.254 dev wlan0 table 1003 metric 65536",
			wantType:  RouteUnicast,
			wantDst:   "0.0.0.0/0",
			wantGw:    "100.86.211.254",
			wantDev:   "wlan0",
			wantTable: "1003",
		},
		{
			name:      "kernel link route without table defaults to main",
			family:    V4,
			line:      "192.168.1.0/24 dev eth0 proto kernel scope link src 192.168.1.10",
			wantType:  RouteUnicast,
			wantDst:   "192.168.1.0/24",
			wantDev:   "eth0",
			wantTable: "main",
		},
		{
			name:      "local route with bare address gets host prefix",
			family:    V4,
			line:      "local 127.0.0.1 dev lo table local proto kernel scope host src 127.0.0.1",
			wantType:  RouteLocal,
			wantDst:   "127.0.0.1/32",
			wantDev:   "lo",
			wantTable: "local",
		},
		{
			name:      "broadcast route",
			family:    V4,
			line:      "broadcast 192.168.1.255 dev eth0 table local",
			wantType:  RouteBroadcast,
			wantDst:   "192.168.1.255/32",
			wantDev:   "eth0",
			wantTable: "local",
		},
		{
			name:      "throw route",
			family:    V4,
			line:      "throw 10.0.0.0/8 dev eth0 table 100",
			wantType:  RouteThrow,
			wantDst:   "10.0.0.0/8",
			wantDev:   "eth0",
			wantTable: "100",
		},
		{
			name:      "unreachable route with device",
			family:    V4,
			line:      "unreachable 172.16.0.0/12 dev lo table 66",
			wantType:  RouteUnreachable,
			wantDst:   "172.16.0.0/12",
			wantDev:   "lo",
			wantTable: "66",
		},
		{
			name:      "ipv6 default route",
			family:    V6,
			line:      "default via fe80::1 dev eth0 table 1003 metric 1024 pref medium",
			wantType:  RouteUnicast,
			wantDst:   "::/0",
			wantGw:    "fe80::1",
			wantDev:   "eth0",
			wantTable: "1003",
		},
		{
			name:      "ipv6 prefix route",
			family:    V6,
			line:      "2001:db8:1::/64 dev eth0 proto ra metric 100",
			wantType:  RouteUnicast,
			wantDst:   "2001:db8:1::/64",
			wantDev:   "eth0",
			wantTable: "main",
		},
		{
			name:      "extra whitespace collapses",
			family:    V4,
			line:      "  10.0.0.0/8    dev   tun0   table 42  ",
			wantType:  RouteUnicast,
			wantDst:   "10.0.0.0/8",
			wantDev:   "tun0",
			wantTable: "42",
		},
		{
			name:    "empty line",
			family:  V4,
			line:    "",
			wantErr: true,
		},
		{
			name:    "dev without value",
			family:  V4,
			line:    "192.25.25.0/24 dev",
			wantErr: true,
		},
		{
			name:    "no dev at all",
			family:  V4,
			line:    "192.25.25.0/24 proto kernel scope link",
			wantErr: true,
		},
		{
			name:    "invalid destination",
			family:  V4,
			line:    "not-an-address dev eth0 table 5",
			wantErr: true,
		},
		{
			name:    "prefix length out of range",
			family:  V4,
			line:    "10.0.0.0/33 dev eth0",
			wantErr: true,
		},
		{
			name:    "family mismatch",
			family:  V4,
			line:    "2001:db8::/64 dev eth0",
			wantErr: true,
		},
		{
			name:    "via without value",
			family:  V4,
			line:    "default dev eth0 via",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, err := ParseRoute(tt.family, tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRoute(%q) expected error, got %+v", tt.line, route)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRoute(%q) failed: %v", tt.line, err)
			}

			if route.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", route.Type, tt.wantType)
			}
			if route.Dst.String() != tt.wantDst {
				t.Errorf("Dst = %s, want %s", route.Dst, tt.wantDst)
			}
			if tt.wantGw == "" {
				if route.Gateway.IsValid() {
					t.Errorf("Gateway = %s, want none", route.Gateway)
				}
			} else if route.Gateway.String() != tt.wantGw {
				t.Errorf("Gateway = %s, want %s", route.Gateway, tt.wantGw)
			}
			if route.OutputInterface != tt.wantDev {
				t.Errorf("OutputInterface = %q, want %q", route.OutputInterface, tt.wantDev)
			}
			if route.Table != tt.wantTable {
				t.Errorf("Table = %q, want %q", route.Table, tt.wantTable)
			}
		})
	}
}

// A parsed destination prefix must contain every address the CIDR text
// describes, whatever form the text used.
func TestParseRoute_DestinationContainment(t *testing.T) {
	tests := []struct {
		line    string
		family  Family
		inside  []string
		outside []string
	}{
		{
			line:    "100.86.208.0/22 dev wlan0",
			family:  V4,
			inside:  []string{"100.86.208.0", "100.86.210.153", "100.86.211.255"},
			outside: []string{"100.86.212.0", "100.86.207.255"},
		},
		{
			// Non-canonical CIDR text still covers its whole block.
			line:    "100.86.210.153/22 dev wlan0",
			family:  V4,
			inside:  []string{"100.86.208.1", "100.86.211.254"},
			outside: []string{"100.87.208.1"},
		},
		{
			line:    "default dev wlan0",
			family:  V4,
			inside:  []string{"0.0.0.0", "255.255.255.255", "8.8.8.8"},
			outside: nil,
		},
		{
			line:    "2001:db8::/32 dev eth0",
			family:  V6,
			inside:  []string{"2001:db8::1", "2001:db8:ffff::1"},
			outside: []string{"2001:db9::1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			route, err := ParseRoute(tt.family, tt.line)
			if err != nil {
				t.Fatalf("ParseRoute(%q) failed: %v", tt.line, err)
			}
			for _, s := range tt.inside {
				if !route.Dst.Contains(netip.MustParseAddr(s)) {
					t.Errorf("%s should contain %s", route.Dst, s)
				}
			}
			for _, s := range tt.outside {
				if route.Dst.Contains(netip.MustParseAddr(s)) {
					t.Errorf("%s should not contain %s", route.Dst, s)
				}
			}
		})
	}
}

func TestParseRoute_KeepsRawLine(t *testing.T) {
	line := "default via 100.86.211.254 dev wlan0 table 1003 metric 65536"
	route, err := ParseRoute(V4, line)
	if err != nil {
		t.Fatalf("ParseRoute failed: %v", err)
	}
	if route.Raw != line {
		t.Errorf("Raw = %q, want %q", route.Raw, line)
	}
}
