package net

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Scheme prefixes share links handed out by a host.
const Scheme = "sharedboard://"

// ShareLink returns the link a client opens to join the host at host:port.
func ShareLink(host string, port int) string {
	return Scheme + net.JoinHostPort(host, strconv.Itoa(port))
}

// IsShareLink reports whether s looks like a share link.
func IsShareLink(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// ParseShareLink returns the host:port address of a share link.
func ParseShareLink(link string) (string, error) {
	addr, ok := strings.CutPrefix(link, Scheme)
	if !ok {
		return "", fmt.Errorf("not a share link: %q", link)
	}
	addr = strings.TrimSuffix(addr, "/")
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("share link %q: %w", link, err)
	}
	if host == "" {
		return "", fmt.Errorf("share link %q: missing host", link)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("share link %q: bad port: %w", link, err)
	}
	return addr, nil
}
