package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"mcptoolbox/internal/cache"
	"mcptoolbox/internal/log"
	"mcptoolbox/internal/model"
	"mcptoolbox/internal/util"
	"mcptoolbox/internal/util/analyzer"
)

type linkResult struct {
	checked      bool
	isAccessible bool
}

const (
	maxLinkCheckWorkers = 20
	linkCheckTimeout    = 5 * time.Second
	linkCheckBudget     = 30 * time.Second
	maxPageBytes        = 10 << 20
	userAgent           = "mcptoolbox-page-audit/1.0"
)

var errBlockedAddress = errors.New("destination address is not allowed")

// sharedAddressSpace is the carrier-grade NAT range, which netip does not
// report as private.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// isBlockedAddr reports whether a resolved address is loopback, private,
// link-local (including cloud metadata endpoints), multicast or unspecified.
func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() ||
		sharedAddressSpace.Contains(addr)
}

// publicOnly runs after name resolution, so it also covers hosts that resolve
// to internal addresses.
func publicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	if isBlockedAddr(addr) {
		return fmt.Errorf("%w: %s", errBlockedAddress, addr)
	}
	return nil
}

func newTransport(allowPrivate bool) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if allowPrivate {
		return transport
	}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   publicOnly,
	}
	transport.DialContext = dialer.DialContext
	transport.Proxy = nil
	return transport
}

// PageAuditor fetches a page and runs every SEO heuristic against it.
type PageAuditor struct {
	client     *http.Client
	linkClient *http.Client
	cache      *cache.AuditCache
	linkBudget time.Duration
}

// NewPageAuditor builds an auditor. Unless allowPrivate is set, pages and
// links on loopback, private and link-local addresses are refused.
func NewPageAuditor(fetchTimeout time.Duration, auditCache *cache.AuditCache, allowPrivate bool) *PageAuditor {
	transport := newTransport(allowPrivate)
	return &PageAuditor{
		client: &http.Client{Timeout: fetchTimeout, Transport: transport},
		linkClient: &http.Client{
			Timeout:   linkCheckTimeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		cache:      auditCache,
		linkBudget: linkCheckBudget,
	}
}

// Audit fetches targetURL and reports its title, description, headings,
// Open Graph tags and, when checkLinks is set, link accessibility.
func (p *PageAuditor) Audit(ctx context.Context, targetURL string, checkLinks bool) (*model.PageAudit, error) {
	targetURL = strings.TrimSpace(targetURL)
	if !util.IsValidURL(targetURL) {
		return nil, fmt.Errorf("%w: invalid url %q", ErrInvalidInput, targetURL)
	}

	if cached, ok := p.cache.Get(targetURL, checkLinks); ok {
		log.Logger.Debug("page audit cache hit", zap.String("url", targetURL))
		return cached, nil
	}

	baseURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url %q", ErrInvalidInput, targetURL)
	}

	rawHTML, err := p.fetchHTML(ctx, targetURL)
	if err != nil {
		return nil, err
	}

	audit := &model.PageAudit{
		URL:   targetURL,
		Links: model.LinkStats{Checked: checkLinks},
	}

	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		audit.HTMLVersion = analyzer.DetectHTMLVersion(rawHTML)
	}()

	go func() {
		defer wg.Done()
		audit.Title = CheckMetaTitle(analyzer.ExtractTitle(rawHTML))
	}()

	go func() {
		defer wg.Done()
		description := analyzer.ExtractMeta(rawHTML, "name")["description"]
		audit.Description = CheckMetaDescription(description)
	}()

	go func() {
		defer wg.Done()
		audit.Headings = AnalyzeHeadingStructure(rawHTML)
		audit.OpenGraph = CheckOpenGraphTags(rawHTML)
	}()

	go func() {
		defer wg.Done()
		links := analyzer.ExtractLinks(rawHTML)
		if checkLinks {
			audit.Links = p.analyzeLinks(ctx, links, baseURL)
			return
		}
		audit.Links = classifyLinks(links, baseURL)
	}()

	wg.Wait()

	for _, status := range []model.Status{audit.Title.Status, audit.Description.Status, audit.Headings.Status, audit.OpenGraph.Status} {
		if status != model.StatusGood {
			audit.Warnings++
		}
	}
	audit.Status = model.StatusGood
	if audit.Warnings > 0 {
		audit.Status = model.StatusWarning
	}

	if audit.Links.UncheckedCount > 0 {
		log.Logger.Warn("link check budget exhausted, audit not cached",
			zap.String("url", targetURL),
			zap.Int("unchecked", audit.Links.UncheckedCount),
		)
		return audit, nil
	}
	p.cache.Set(targetURL, checkLinks, audit)
	return audit, nil
}

// retrieves the HTML content from the given URL
func (p *PageAuditor) fetchHTML(ctx context.Context, targetURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		log.Logger.Error("failed to fetch URL",
			zap.String("url", targetURL),
			zap.Error(err),
		)
		if errors.Is(err, errBlockedAddress) {
			return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		log.Logger.Warn("unexpected status code",
			zap.String("url", targetURL),
			zap.Int("status_code", resp.StatusCode),
		)
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		log.Logger.Warn("failed to read response body",
			zap.String("url", targetURL),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	log.Logger.Info("fetched page",
		zap.String("url", targetURL),
		zap.Int("content_length", len(body)),
		zap.Int("status_code", resp.StatusCode),
	)

	return string(body), nil
}

// check whether link is internal or not
func isInternalLink(link string, baseURL *url.URL) bool {
	if link == "" || strings.HasPrefix(link, "#") {
		return true
	}

	parsedLink, err := url.Parse(link)
	if err != nil {
		return false
	}
	resolvedLink := baseURL.ResolveReference(parsedLink)

	return strings.EqualFold(resolvedLink.Host, baseURL.Host)
}

// checkLinkAccessibility sends a HEAD request and falls back to GET when
// HEAD fails. Links with non-http schemes are treated as accessible.
func (p *PageAuditor) checkLinkAccessibility(ctx context.Context, link string, baseURL *url.URL) bool {
	parsedLink, err := url.Parse(link)
	if err != nil {
		return false
	}

	resolvedLink := baseURL.ResolveReference(parsedLink)

	scheme := strings.ToLower(resolvedLink.Scheme)
	if scheme != "http" && scheme != "https" {
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, resolvedLink.String(), nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.linkClient.Do(req)
	if err != nil {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, resolvedLink.String(), nil)
		if err != nil {
			return false
		}
		req.Header.Set("User-Agent", userAgent)
		resp, err = p.linkClient.Do(req)
		if err != nil {
			return false
		}
	}
	defer resp.Body.Close()

	return resp.StatusCode < 400
}

// classifyLinks counts internal and external links without probing them.
func classifyLinks(links []string, baseURL *url.URL) model.LinkStats {
	var stats model.LinkStats
	for _, link := range links {
		if isInternalLink(link, baseURL) {
			stats.InternalCount++
		} else {
			stats.ExternalCount++
		}
	}
	return stats
}

// analyzeLinks classifies every link and probes each one on a bounded worker
// pool. Links left unprobed when the budget or ctx runs out are counted as
// unchecked, never dropped.
func (p *PageAuditor) analyzeLinks(parent context.Context, links []string, baseURL *url.URL) model.LinkStats {
	stats := classifyLinks(links, baseURL)
	stats.Checked = true
	if len(links) == 0 {
		return stats
	}

	ctx, cancel := context.WithTimeout(parent, p.linkBudget)
	defer cancel()

	linkJobs := make(chan string, len(links))
	results := make(chan linkResult, len(links))

	numWorkers := maxLinkCheckWorkers
	if len(links) < numWorkers {
		numWorkers = len(links)
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range linkJobs {
				if ctx.Err() != nil {
					results <- linkResult{}
					continue
				}
				accessible := p.checkLinkAccessibility(ctx, link, baseURL)
				if !accessible && ctx.Err() != nil {
					results <- linkResult{}
					continue
				}
				results <- linkResult{checked: true, isAccessible: accessible}
			}
		}()
	}

	for _, link := range links {
		linkJobs <- link
	}
	close(linkJobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for result := range results {
		switch {
		case !result.checked:
			stats.UncheckedCount++
		case !result.isAccessible:
			stats.InaccessibleCount++
		}
	}

	return stats
}
