package security

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP : первый адрес из X-Forwarded-For, затем X-Real-IP, затем RemoteAddr без порта.
// Значение заголовка, не являющееся IP адресом, игнорируется
func ClientIP(r *http.Request) string {
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	if ip, ok := parseIP(first); ok {
		return ip
	}
	if ip, ok := parseIP(r.Header.Get("X-Real-IP")); ok {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, ok := parseIP(host); ok {
		return ip
	}
	return ""
}

func parseIP(value string) (string, bool) {
	ip := net.ParseIP(strings.TrimSpace(value))
	if ip == nil {
		return "", false
	}
	return ip.String(), true
}
