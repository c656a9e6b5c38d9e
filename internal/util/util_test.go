package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetClientIPAddress(t *testing.T) {
	proxies, err := ParseTrustedProxies("10.0.0.0/8, 192.0.2.1")
	if err != nil {
		t.Fatalf("ParseTrustedProxies() unexpected error: %v", err)
	}

	tests := []struct {
		name       string
		remoteAddr string
		trusted    TrustedProxies
		headers    map[string]string
		want       string
	}{
		{name: "Remote addr with port", remoteAddr: "10.0.0.7:53211", want: "10.0.0.7"},
		{name: "IPv6 remote addr", remoteAddr: "[::1]:8080", want: "::1"},
		{name: "Remote addr without port", remoteAddr: "10.0.0.8", want: "10.0.0.8"},
		{name: "Forwarded ignored without trusted proxies", remoteAddr: "203.0.113.50:1", headers: map[string]string{"X-Forwarded-For": "198.51.100.1"}, want: "203.0.113.50"},
		{name: "Forwarded ignored from untrusted peer", remoteAddr: "203.0.113.50:1", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "198.51.100.1"}, want: "203.0.113.50"},
		{name: "Single forwarded hop", remoteAddr: "10.0.0.7:1", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "203.0.113.9"}, want: "203.0.113.9"},
		{name: "Rightmost untrusted hop", remoteAddr: "10.0.0.7:1", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.9 , 10.1.1.1"}, want: "203.0.113.9"},
		{name: "Single trusted address", remoteAddr: "192.0.2.1:1", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "198.51.100.7"}, want: "198.51.100.7"},
		{name: "Real IP", remoteAddr: "10.0.0.7:1", trusted: proxies, headers: map[string]string{"X-Real-IP": "198.51.100.4"}, want: "198.51.100.4"},
		{name: "Garbage real IP", remoteAddr: "10.0.0.7:1", trusted: proxies, headers: map[string]string{"X-Real-IP": "nope"}, want: "10.0.0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIPAddress(r, tt.trusted); got != tt.want {
				t.Errorf("GetClientIPAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantLen int
		wantErr bool
	}{
		{name: "Empty", raw: "", wantLen: 0},
		{name: "Mixed", raw: "10.0.0.0/8, ::1 ,192.168.1.1", wantLen: 3},
		{name: "Bad CIDR", raw: "10.0.0.0/99", wantErr: true},
		{name: "Hostname", raw: "proxy.internal", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTrustedProxies(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTrustedProxies(%q) expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTrustedProxies(%q) unexpected error: %v", tt.raw, err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("ParseTrustedProxies(%q) len = %d, want %d", tt.raw, len(got), tt.wantLen)
			}
		})
	}
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "HTTPS", input: "https://example.com", want: true},
		{name: "HTTP with port and path", input: "http://localhost:8080/a/b?c=d", want: true},
		{name: "Empty", input: "", want: false},
		{name: "No scheme", input: "example.com", want: false},
		{name: "FTP", input: "ftp://example.com", want: false},
		{name: "Javascript", input: "javascript:alert(1)", want: false},
		{name: "Spaces in host", input: "https://exa mple.com", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidURL(tt.input); got != tt.want {
				t.Errorf("IsValidURL(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
