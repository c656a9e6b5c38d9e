package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"mcptoolbox/internal/cache"
	"mcptoolbox/internal/log"
	"mcptoolbox/internal/model"
)

const auditedPage = `<!DOCTYPE html>
<html>
<head>
	<title>Gopher Gardening: growing Go in small plots</title>
	<meta name="description" content="A short guide.">
	<meta property="og:title" content="Gopher Gardening">
	<meta property="og:url" content="https://example.com/garden">
</head>
<body>
	<h1>Gopher Gardening</h1>
	<h2>Soil</h2>
	<a href="/ok">ok</a>
	<a href="/missing">missing</a>
	<a href="#top">top</a>
	<a href="%s/elsewhere">external</a>
</body>
</html>`

func newTestAuditor() *PageAuditor {
	return NewPageAuditor(5*time.Second, cache.New(time.Hour), true)
}

func TestFetchHTML(t *testing.T) {
	log.Logger, _ = zap.NewDevelopment()
	defer log.Logger.Sync()
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectError    bool
	}{
		{
			name: "Successful fetch",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, "<html><head><title>Test</title></head></html>")
			},
			expectError: false,
		},
		{
			name: "404 response",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			expectError: true,
		},
		{
			name: "500 response",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			rawHTML, err := newTestAuditor().fetchHTML(context.Background(), server.URL)

			if tt.expectError {
				if err == nil {
					t.Error("fetchHTML() expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("fetchHTML() unexpected error: %v", err)
				}
				if rawHTML == "" {
					t.Error("fetchHTML() returned empty rawHTML")
				}
			}
		})
	}
}

func TestIsInternalLink(t *testing.T) {
	baseURL, _ := url.Parse("https://example.com/page")

	tests := []struct {
		name     string
		link     string
		expected bool
	}{
		{name: "Same domain absolute URL", link: "https://example.com/other", expected: true},
		{name: "Same domain different path", link: "/about", expected: true},
		{name: "Anchor link", link: "#section", expected: true},
		{name: "Empty link", link: "", expected: true},
		{name: "External domain", link: "https://external.com/page", expected: false},
		{name: "Subdomain", link: "https://sub.example.com/page", expected: false},
		{name: "Relative URL", link: "page2.html", expected: true},
		{name: "Case insensitive domain", link: "https://EXAMPLE.COM/page", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isInternalLink(tt.link, baseURL)
			if result != tt.expected {
				t.Errorf("isInternalLink(%q) = %v, want %v", tt.link, result, tt.expected)
			}
		})
	}
}

func TestCheckLinkAccessibility(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/not-found":
			w.WriteHeader(http.StatusNotFound)
		case "/redirect":
			w.Header().Set("Location", "/ok")
			w.WriteHeader(http.StatusMovedPermanently)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	baseURL, _ := url.Parse(server.URL)
	auditor := newTestAuditor()

	tests := []struct {
		name     string
		link     string
		expected bool
	}{
		{name: "Accessible link", link: server.URL + "/ok", expected: true},
		{name: "404 link", link: server.URL + "/not-found", expected: false},
		{name: "Redirect link", link: server.URL + "/redirect", expected: true},
		{name: "Mailto link", link: "mailto:test@example.com", expected: true},
		{name: "Tel link", link: "tel:+1234567890", expected: true},
		{name: "Javascript link", link: "javascript:void(0)", expected: true},
		{name: "Anchor link", link: "#section", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			result := auditor.checkLinkAccessibility(ctx, tt.link, baseURL)
			if result != tt.expected {
				t.Errorf("checkLinkAccessibility(%q) = %v, want %v", tt.link, result, tt.expected)
			}
		})
	}
}

func TestAnalyzeLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/accessible" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer external.Close()

	baseURL, _ := url.Parse(server.URL)
	auditor := newTestAuditor()

	tests := []struct {
		name                 string
		links                []string
		expectedInternal     int
		expectedExternal     int
		expectedInaccessible int
	}{
		{
			name: "Mixed links",
			links: []string{
				"/page1",
				"/page2",
				external.URL + "/page",
				server.URL + "/accessible",
			},
			expectedInternal:     3,
			expectedExternal:     1,
			expectedInaccessible: 2,
		},
		{
			name:  "No links",
			links: []string{},
		},
		{
			name: "All internal",
			links: []string{
				"/page1",
				"/page2",
				"#anchor",
			},
			expectedInternal:     3,
			expectedExternal:     0,
			expectedInaccessible: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := auditor.analyzeLinks(context.Background(), tt.links, baseURL)
			if stats.InternalCount != tt.expectedInternal {
				t.Errorf("analyzeLinks() internal = %d, want %d", stats.InternalCount, tt.expectedInternal)
			}
			if stats.ExternalCount != tt.expectedExternal {
				t.Errorf("analyzeLinks() external = %d, want %d", stats.ExternalCount, tt.expectedExternal)
			}
			if stats.InaccessibleCount != tt.expectedInaccessible {
				t.Errorf("analyzeLinks() inaccessible = %d, want %d", stats.InaccessibleCount, tt.expectedInaccessible)
			}
			if stats.UncheckedCount != 0 {
				t.Errorf("analyzeLinks() unchecked = %d, want 0", stats.UncheckedCount)
			}
		})
	}
}

// stallingServer answers only after the client gives up.
func stallingServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})
	return server
}

func TestAnalyzeLinksBudgetExhausted(t *testing.T) {
	internalServer := stallingServer(t)
	externalServer := stallingServer(t)
	baseURL, _ := url.Parse(internalServer.URL)

	var links []string
	for i := 0; i < 20; i++ {
		links = append(links, fmt.Sprintf("%s/page/%d", internalServer.URL, i))
	}
	for i := 0; i < 5; i++ {
		links = append(links, fmt.Sprintf("%s/page/%d", externalServer.URL, i))
	}

	auditor := newTestAuditor()
	auditor.linkBudget = 100 * time.Millisecond

	stats := auditor.analyzeLinks(context.Background(), links, baseURL)

	want := model.LinkStats{Checked: true, InternalCount: 20, ExternalCount: 5, UncheckedCount: 25}
	if stats != want {
		t.Errorf("analyzeLinks() = %+v, want %+v", stats, want)
	}
	if got := classifyLinks(links, baseURL); got.InternalCount != stats.InternalCount || got.ExternalCount != stats.ExternalCount {
		t.Errorf("classifyLinks() = %+v, want the same totals as analyzeLinks()", got)
	}
}

func TestAuditPageNotCachedWhenLinksUnchecked(t *testing.T) {
	slow := stallingServer(t)

	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/" {
			pageHits.Add(1)
		}
		fmt.Fprintf(w, auditedPage, slow.URL)
	}))
	defer server.Close()

	auditor := newTestAuditor()
	auditor.linkBudget = 100 * time.Millisecond

	for i := 0; i < 2; i++ {
		audit, err := auditor.Audit(context.Background(), server.URL+"/", true)
		if err != nil {
			t.Fatalf("Audit() unexpected error: %v", err)
		}
		if audit.Links.InternalCount != 3 || audit.Links.ExternalCount != 1 {
			t.Errorf("Links = %+v, want 3 internal and 1 external", audit.Links)
		}
		if audit.Links.UncheckedCount == 0 {
			t.Errorf("Links.UncheckedCount = 0, want the stalled link unchecked")
		}
	}

	if pageHits.Load() != 2 {
		t.Errorf("page fetched %d times, want a fresh fetch per audit", pageHits.Load())
	}
}

func TestIsBlockedAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{addr: "127.0.0.1", want: true},
		{addr: "::1", want: true},
		{addr: "10.1.2.3", want: true},
		{addr: "172.16.0.9", want: true},
		{addr: "192.168.1.1", want: true},
		{addr: "169.254.169.254", want: true},
		{addr: "100.64.0.1", want: true},
		{addr: "0.0.0.0", want: true},
		{addr: "fe80::1", want: true},
		{addr: "fd00::1", want: true},
		{addr: "::ffff:127.0.0.1", want: true},
		{addr: "93.184.216.34", want: false},
		{addr: "2606:4700::1111", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := isBlockedAddr(netip.MustParseAddr(tt.addr)); got != tt.want {
				t.Errorf("isBlockedAddr(%s) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestAuditPageRefusesPrivateAddresses(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "<html><title>internal</title></html>")
	}))
	defer server.Close()

	auditor := NewPageAuditor(5*time.Second, cache.New(time.Hour), false)
	_, err := auditor.Audit(context.Background(), server.URL+"/", false)
	if err == nil {
		t.Fatal("Audit() expected error for a loopback address, got nil")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Audit() error = %v, want ErrInvalidInput", err)
	}
	if !strings.Contains(err.Error(), "not allowed") {
		t.Errorf("Audit() error = %v, want it to mention the refused address", err)
	}
	if hits.Load() != 0 {
		t.Errorf("server received %d requests, want 0", hits.Load())
	}
}

func TestAuditPage(t *testing.T) {
	external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer external.Close()

	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			if r.Method == http.MethodGet {
				pageHits.Add(1)
			}
			fmt.Fprintf(w, auditedPage, external.URL)
		case "/ok":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	auditor := newTestAuditor()

	audit, err := auditor.Audit(context.Background(), server.URL+"/", true)
	if err != nil {
		t.Fatalf("Audit() unexpected error: %v", err)
	}

	if audit.HTMLVersion != "HTML5" {
		t.Errorf("HTMLVersion = %q, want HTML5", audit.HTMLVersion)
	}
	if audit.Title.Title != "Gopher Gardening: growing Go in small plots" || audit.Title.Status != model.StatusGood {
		t.Errorf("Title = %+v, want good title check", audit.Title)
	}
	if audit.Description.Description != "A short guide." || audit.Description.Status != model.StatusWarning {
		t.Errorf("Description = %+v, want short description warning", audit.Description)
	}
	if audit.Headings.H1Count != 1 || audit.Headings.TotalHeadings != 2 {
		t.Errorf("Headings = %+v, want one h1 of two headings", audit.Headings)
	}
	if strings.Join(audit.OpenGraph.MissingTags, ",") != "og:description,og:image" {
		t.Errorf("OpenGraph.MissingTags = %v", audit.OpenGraph.MissingTags)
	}
	wantLinks := model.LinkStats{Checked: true, InternalCount: 3, ExternalCount: 1, InaccessibleCount: 1}
	if audit.Links != wantLinks {
		t.Errorf("Links = %+v, want %+v", audit.Links, wantLinks)
	}
	if audit.Status != model.StatusWarning || audit.Warnings != 2 {
		t.Errorf("Status = %v, Warnings = %d, want warning with 2", audit.Status, audit.Warnings)
	}

	again, err := auditor.Audit(context.Background(), server.URL+"/", true)
	if err != nil {
		t.Fatalf("Audit() second call unexpected error: %v", err)
	}
	if again != audit {
		t.Error("Audit() second call did not return the cached result")
	}
	if pageHits.Load() != 1 {
		t.Errorf("page fetched %d times, want 1", pageHits.Load())
	}
}

func TestAuditPageWithoutLinkChecks(t *testing.T) {
	var probes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			fmt.Fprintf(w, auditedPage, "https://other.example")
			return
		}
		probes.Add(1)
	}))
	defer server.Close()

	audit, err := newTestAuditor().Audit(context.Background(), server.URL+"/", false)
	if err != nil {
		t.Fatalf("Audit() unexpected error: %v", err)
	}

	wantLinks := model.LinkStats{Checked: false, InternalCount: 3, ExternalCount: 1}
	if audit.Links != wantLinks {
		t.Errorf("Links = %+v, want %+v", audit.Links, wantLinks)
	}
	if probes.Load() != 0 {
		t.Errorf("links probed %d times, want 0", probes.Load())
	}
}

func TestAuditPageErrors(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	tests := []struct {
		name         string
		url          string
		wantInvalid  bool
		wantContains string
	}{
		{name: "Empty url", url: "", wantInvalid: true},
		{name: "No scheme or host", url: "not a url", wantInvalid: true},
		{name: "Unsupported scheme", url: "ftp://example.com/file", wantInvalid: true},
		{name: "Upstream error", url: down.URL, wantContains: "unexpected status code: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestAuditor().Audit(context.Background(), tt.url, false)
			if err == nil {
				t.Fatal("Audit() expected error, got nil")
			}
			if tt.wantInvalid && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Audit() error = %v, want ErrInvalidInput", err)
			}
			if tt.wantContains != "" && !strings.Contains(err.Error(), tt.wantContains) {
				t.Errorf("Audit() error = %v, want it to contain %q", err, tt.wantContains)
			}
		})
	}
}
