// pkg/platform/network.go

package platform

import (
	"net"
	"os"
	"strings"
)

// PrimaryIP returns the host's primary outbound IPv4 address. No packets are
// sent; the kernel picks the source address for the dial.
func PrimaryIP() string {
	conn, err := net.Dial("udp4", "255.255.255.255:80")
	if err != nil {
		return firstInterfaceIP()
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && addr.IP != nil {
		return addr.IP.String()
	}
	return firstInterfaceIP()
}

func firstInterfaceIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}

// ShortHostname returns the host's name up to the first dot.
func ShortHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "vault-node-1"
	}
	short, _, _ := strings.Cut(hostname, ".")
	if short == "" {
		return "vault-node-1"
	}
	return short
}
