// Package routing reproduces, in user space, the decision the Linux kernel
// makes when routing a packet under policy routing: ip rules are evaluated in
// priority order and, for each matching rule, a longest-prefix-match lookup is
// performed in the referenced routing table, stopping at the first table that
// yields a route.
//
// The package works on a point-in-time snapshot of `ip rule show` and
// `ip route show table all` output; it never touches the live FIB.
package routing

import (
	"fmt"
	"net/netip"
)

// Family is an IP address family tag. Every Route, PolicyRule and Packet
// carries exactly one; values of different families are never compared.
type Family uint8

const (
	V4 Family = 4
	V6 Family = 6
)

func (f Family) String() string {
	if f == V6 {
		return "IPv6"
	}
	return "IPv4"
}

// HostBits returns the prefix length of a single host address in this family.
func (f Family) HostBits() int {
	if f == V6 {
		return 128
	}
	return 32
}

// AllPrefix returns the zero-length prefix covering the whole address space
// of the family (0.0.0.0/0 or ::/0).
func (f Family) AllPrefix() netip.Prefix {
	if f == V6 {
		return netip.PrefixFrom(netip.IPv6Unspecified(), 0)
	}
	return netip.PrefixFrom(netip.AddrFrom4([4]byte{}), 0)
}

// ParseFamily converts the numeric family used in configs and the API (4 or 6).
func ParseFamily(v uint8) (Family, error) {
	switch v {
	case 0, 4:
		// Unset defaults to IPv4, like `ip` without -4/-6.
		return V4, nil
	case 6:
		return V6, nil
	default:
		return 0, fmt.Errorf("invalid IP family %d (must be 4 or 6)", v)
	}
}

// FamilyOf returns the family of an address. 4-in-6 mapped addresses count as
// IPv4, matching how iproute2 prints them.
func FamilyOf(addr netip.Addr) Family {
	if addr.Is4() || addr.Is4In6() {
		return V4
	}
	return V6
}
