package addr

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"strings"
)

// ErrUnsupportedQuery is returned by Record.Has for query types other than
// netip.Addr, netip.Prefix and Interface.
var ErrUnsupportedQuery = errors.New("unsupported address query")

// Record holds the distinct addresses and networks found in one line.
// Networks are stored masked; Addrs include the address written in front of
// every network form.
type Record struct {
	Addrs    []netip.Addr
	Networks []netip.Prefix
}

// Interface is an address together with the network it lives in, such as
// "192.0.2.1/30" on an interface.
type Interface struct {
	Addr    netip.Addr
	Network netip.Prefix
}

func (i Interface) String() string {
	return netip.PrefixFrom(i.Addr, i.Network.Bits()).String()
}

// InterfaceFrom converts an unmasked prefix into an Interface.
func InterfaceFrom(p netip.Prefix) Interface {
	return Interface{Addr: p.Addr(), Network: p.Masked()}
}

// ParseInterface parses "addr/len".
func ParseInterface(s string) (Interface, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return Interface{}, fmt.Errorf("parse interface: %w", err)
	}
	return InterfaceFrom(p), nil
}

// ParseQuery turns user input into a query for Record.Has: a bare address
// becomes netip.Addr, "net/len" with no host bits a netip.Prefix, and
// anything else with a length an Interface.
func ParseQuery(s string) (any, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("parse address: %w", err)
		}
		return a, nil
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return nil, fmt.Errorf("parse network: %w", err)
	}
	if p == p.Masked() {
		return p, nil
	}
	return InterfaceFrom(p), nil
}

// Empty reports whether nothing was found.
func (r Record) Empty() bool {
	return len(r.Addrs) == 0 && len(r.Networks) == 0
}

func (r *Record) addAddr(a netip.Addr) {
	if !slices.Contains(r.Addrs, a) {
		r.Addrs = append(r.Addrs, a)
	}
}

func (r *Record) addNetwork(p netip.Prefix) {
	if !slices.Contains(r.Networks, p) {
		r.Networks = append(r.Networks, p)
	}
}

// Has reports whether the record refers to q. Only values of the same IP
// version ever match.
//   - netip.Addr: equal to a stored address or inside a stored network.
//   - netip.Prefix: equal to a stored network or containing a stored address.
//   - Interface: either of the above for its address or its network.
func (r Record) Has(q any) (bool, error) {
	switch v := q.(type) {
	case netip.Addr:
		return r.hasAddr(v), nil
	case netip.Prefix:
		return r.hasNetwork(v.Masked()), nil
	case Interface:
		return r.hasAddr(v.Addr) || r.hasNetwork(v.Network.Masked()), nil
	default:
		return false, fmt.Errorf("%w: %T", ErrUnsupportedQuery, q)
	}
}

func (r Record) hasAddr(a netip.Addr) bool {
	if slices.Contains(r.Addrs, a) {
		return true
	}
	for _, n := range r.Networks {
		if n.Contains(a) {
			return true
		}
	}
	return false
}

func (r Record) hasNetwork(p netip.Prefix) bool {
	if !p.IsValid() {
		return false
	}
	if slices.Contains(r.Networks, p) {
		return true
	}
	for _, a := range r.Addrs {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
