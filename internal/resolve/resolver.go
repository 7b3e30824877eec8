// Package resolve turns hostname packet endpoints into addresses, so
// simulations can be written against names instead of raw IPs. The routing
// core itself only ever sees addresses.
package resolve

import (
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"

	"github.com/maksimkurb/pbr-lens/internal/errors"
	"github.com/maksimkurb/pbr-lens/internal/log"
	"github.com/maksimkurb/pbr-lens/internal/routing"
)

const (
	defaultDNSPort  = "53"
	defaultResolver = "8.8.8.8:53"

	clientTimeout = 3 * time.Second
)

// Resolver resolves hostnames with a plain UDP DNS query against a single
// configured server.
type Resolver struct {
	address string
	client  *dns.Client
}

// NewResolver creates a resolver querying the given "host:port" server.
// An empty server falls back to the default public resolver.
func NewResolver(server string) *Resolver {
	if server == "" {
		server = defaultResolver
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, defaultDNSPort)
	}

	return &Resolver{
		address: server,
		client: &dns.Client{
			Net:     "udp",
			Timeout: clientTimeout,
		},
	}
}

// LookupAddr resolves host into one address of the given family. An address
// literal is returned as-is after a family check; no query is sent for it.
func (r *Resolver) LookupAddr(host string, family routing.Family) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		if routing.FamilyOf(addr) != family {
			return netip.Addr{}, errors.NewResolveError(
				"address "+host+" is not "+family.String(), nil)
		}
		return addr.Unmap(), nil
	}

	qtype := dns.TypeA
	if family == routing.V6 {
		qtype = dns.TypeAAAA
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	log.Debugf("Resolving %s (%s) via %s", host, dns.TypeToString[qtype], r.address)

	in, _, err := r.client.Exchange(m, r.address)
	if err != nil {
		return netip.Addr{}, errors.NewResolveError("querying "+r.address+" for "+host, err)
	}

	for _, rr := range in.Answer {
		switch a := rr.(type) {
		case *dns.A:
			if family == routing.V4 {
				if addr, ok := netip.AddrFromSlice(a.A.To4()); ok {
					return addr, nil
				}
			}
		case *dns.AAAA:
			if family == routing.V6 {
				if addr, ok := netip.AddrFromSlice(a.AAAA); ok {
					return addr, nil
				}
			}
		}
	}

	return netip.Addr{}, errors.NewResolveError(
		"no "+family.String()+" address for "+host, nil)
}
