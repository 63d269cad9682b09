package util

import "net"

// AnonymizeIP zeroes the host portion of an address: the last octet for
// IPv4 (/24), the last 80 bits for IPv6 (/48). Invalid input is returned
// unchanged so capture never fails on a weird proxy value.
func AnonymizeIP(addr string) string {
	ip := net.ParseIP(addr)
	if ip == nil {
		return addr
	}

	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}

	return ip.Mask(net.CIDRMask(48, 128)).String()
}
