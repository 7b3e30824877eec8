package routing

import (
	"fmt"
	"net/netip"
	"strings"
)

// Protocol is the transport protocol of a simulated packet. It is carried for
// completeness of the packet tuple; ip rules do not select on it.
type Protocol string

const (
	ProtoTCP  Protocol = "tcp"
	ProtoUDP  Protocol = "udp"
	ProtoICMP Protocol = "icmp"
)

// ParseProtocol parses a protocol name, case-insensitively.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "", "icmp":
		return ProtoICMP, nil
	case "tcp":
		return ProtoTCP, nil
	case "udp":
		return ProtoUDP, nil
	default:
		return "", fmt.Errorf("invalid protocol %q (must be tcp, udp or icmp)", s)
	}
}

// Packet is the simulated packet a decision is made for.
//
// OutputInterface is the only mutable field: it starts empty and is written at
// most once, by RouteManager, when a decision succeeds. Because of that, a
// Packet lives for one decision cycle and must not be shared across
// concurrent decisions.
type Packet struct {
	Family          Family
	Protocol        Protocol
	Src             netip.Addr
	Dst             netip.Addr
	SrcPort         uint16
	DstPort         uint16
	FwMark          uint32
	InputInterface  string
	OutputInterface string
}

func (p *Packet) String() string {
	s := fmt.Sprintf("%s %s %s:%d -> %s:%d", p.Family, p.Protocol, p.Src, p.SrcPort, p.Dst, p.DstPort)
	if p.InputInterface != "" {
		s += " iif " + p.InputInterface
	}
	if p.FwMark != 0 {
		s += fmt.Sprintf(" fwmark 0x%x", p.FwMark)
	}
	return s
}
