// Package ipam allocates private mesh addresses from a subnet pool.
//
// The free set is computed freshly on every call from the subnet range minus
// the addresses already in use; no allocation state is persisted anywhere.
package ipam

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net/netip"
)

// ErrPoolExhausted is returned when every host address in the pool is taken.
var ErrPoolExhausted = errors.New("address pool exhausted")

// Allocate returns the numerically smallest host address of subnet that is
// not present in used. The network and broadcast addresses are never handed
// out. Deterministic and side-effect free.
func Allocate(subnet netip.Prefix, used []netip.Addr) (netip.Addr, error) {
	if !subnet.IsValid() {
		return netip.Addr{}, fmt.Errorf("subnet is required")
	}
	subnet = subnet.Masked()
	if !subnet.Addr().Is4() {
		return netip.Addr{}, fmt.Errorf("only ipv4 subnets are supported")
	}

	start, end, err := PrefixRange4(subnet)
	if err != nil {
		return netip.Addr{}, err
	}
	// Network and broadcast stay reserved except in /31 and /32 point ranges.
	if subnet.Bits() < 31 {
		start++
		end--
	}

	taken := make(map[uint32]struct{}, len(used))
	for _, a := range used {
		if !a.IsValid() || !a.Is4() {
			continue
		}
		b := a.As4()
		taken[binary.BigEndian.Uint32(b[:])] = struct{}{}
	}

	for curr := start; curr <= end; curr++ {
		if _, ok := taken[curr]; ok {
			continue
		}
		return Uint32ToAddr(curr), nil
	}
	return netip.Addr{}, fmt.Errorf("no free address in %s: %w", subnet, ErrPoolExhausted)
}

// PrefixRange4 returns the first and last address of an IPv4 prefix as
// big-endian integers.
func PrefixRange4(p netip.Prefix) (uint32, uint32, error) {
	p = p.Masked()
	if !p.Addr().Is4() {
		return 0, 0, fmt.Errorf("prefix %s is not ipv4", p)
	}
	b := p.Addr().As4()
	start := binary.BigEndian.Uint32(b[:])
	hostBits := 32 - p.Bits()
	if hostBits <= 0 {
		return start, start, nil
	}
	if hostBits >= 32 {
		return 0, math.MaxUint32, nil
	}
	size := uint32(1) << hostBits
	return start, start + size - 1, nil
}

// Uint32ToAddr converts a big-endian integer to an IPv4 address.
func Uint32ToAddr(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}
