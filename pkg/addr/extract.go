// Package addr finds IPv4 and IPv6 addresses and networks embedded in
// configuration text.
package addr

import (
	"math/bits"
	"net/netip"
	"regexp"
	"strconv"
)

const (
	v4Pattern  = `\d{1,3}(?:\.\d{1,3}){3}`
	v6Pattern  = `(?:[0-9A-Fa-f]{0,4}:){2,7}(?:\d{1,3}(?:\.\d{1,3}){3}|[0-9A-Fa-f]{1,4})?`
	lenPattern = `/(\d{1,3})\b`
)

// oidRe matches SNMP OID-like tokens such as "1.3.6.1.4.1.9.", which look
// like addresses but never are. A line containing one is skipped.
var oidRe = regexp.MustCompile(`\d+(?:\.\d+){3,}\.(?:\s|$)`)

// pattern is one step of the extraction cascade.
type pattern struct {
	name    string
	re      *regexp.Regexp
	convert func(s string, m []int) (netip.Addr, netip.Prefix, bool)

	// bounded patterns only match where the previous byte cannot be part
	// of an address, so "abcd1234:5678::1" yields nothing.
	bounded bool
}

// cascade lists the patterns in priority order. When two patterns match at
// the same offset the earlier one wins.
var cascade = []pattern{
	{"ipv6-network", regexp.MustCompile(`(` + v6Pattern + `)` + lenPattern), convertPrefix, true},
	{"ipv6-address", regexp.MustCompile(v6Pattern), convertAddr, true},
	{"ipv4-cidr", regexp.MustCompile(`\b(` + v4Pattern + `)` + lenPattern), convertPrefix, false},
	{"ipv4-netmask", regexp.MustCompile(`\b(` + v4Pattern + `)\s+(` + v4Pattern + `)\b`), convertNetmask, false},
	{"ipv4-address", regexp.MustCompile(`\b` + v4Pattern + `\b`), convertAddr, false},
}

// find returns the submatch indexes, relative to text, of the first match
// at or after pos.
func (p pattern) find(text string, pos int) []int {
	for from := pos; from < len(text); {
		m := p.re.FindStringSubmatchIndex(text[from:])
		if m == nil {
			return nil
		}
		for i := range m {
			if m[i] >= 0 {
				m[i] += from
			}
		}
		if !p.bounded || m[0] == 0 || !addrByte(text[m[0]-1]) {
			return m
		}
		from = m[0] + 1
	}
	return nil
}

// addrByte reports whether c can appear inside an address token.
func addrByte(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	}
	return c == ':' || c == '.'
}

// Extract scans text left to right. At each position every pattern looks
// for its next match; the earliest match that converts to a valid value is
// taken and scanning resumes after it. When nothing converts the scan stops.
func Extract(text string) Record {
	var r Record
	if oidRe.MatchString(text) {
		return r
	}

	pos := 0
	for pos < len(text) {
		var (
			found      bool
			start, end int
			a          netip.Addr
			p          netip.Prefix
		)
		for _, pat := range cascade {
			m := pat.find(text, pos)
			if m == nil || (found && m[0] >= start) {
				continue
			}
			ca, cp, ok := pat.convert(text, m)
			if !ok {
				continue
			}
			found, start, end, a, p = true, m[0], m[1], ca, cp
		}
		if !found {
			break
		}
		if p.IsValid() {
			r.addNetwork(p)
		}
		r.addAddr(a)
		pos = end
	}
	return r
}

func convertAddr(s string, m []int) (netip.Addr, netip.Prefix, bool) {
	a, err := netip.ParseAddr(s[m[0]:m[1]])
	if err != nil {
		return netip.Addr{}, netip.Prefix{}, false
	}
	return a, netip.Prefix{}, true
}

func convertPrefix(s string, m []int) (netip.Addr, netip.Prefix, bool) {
	a, err := netip.ParseAddr(s[m[2]:m[3]])
	if err != nil {
		return netip.Addr{}, netip.Prefix{}, false
	}
	n, err := strconv.Atoi(s[m[4]:m[5]])
	if err != nil || n > a.BitLen() {
		return netip.Addr{}, netip.Prefix{}, false
	}
	return a, netip.PrefixFrom(a, n).Masked(), true
}

func convertNetmask(s string, m []int) (netip.Addr, netip.Prefix, bool) {
	a, err := netip.ParseAddr(s[m[2]:m[3]])
	if err != nil {
		return netip.Addr{}, netip.Prefix{}, false
	}
	mask, err := netip.ParseAddr(s[m[4]:m[5]])
	if err != nil {
		return netip.Addr{}, netip.Prefix{}, false
	}
	n, ok := maskLen(mask)
	if !ok {
		return netip.Addr{}, netip.Prefix{}, false
	}
	return a, netip.PrefixFrom(a, n).Masked(), true
}

// maskLen returns the prefix length of a contiguous IPv4 netmask.
func maskLen(mask netip.Addr) (int, bool) {
	if !mask.Is4() {
		return 0, false
	}
	b := mask.As4()
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	ones := bits.LeadingZeros32(^v)
	if v != ^uint32(0)<<(32-ones) {
		return 0, false
	}
	return ones, true
}
