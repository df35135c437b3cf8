package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/noah-isme/backend-grocer/internal/pricing"
	"github.com/noah-isme/backend-grocer/internal/resilience"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; grocer-pricefeed/1.0)"

var (
	// ErrPriceNotFound means the page loaded but the selector matched no price.
	ErrPriceNotFound = errors.New("pricefeed: price not found")
	// ErrProductGone means the vendor no longer lists the product.
	ErrProductGone = errors.New("pricefeed: product page gone")

	priceRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
)

// ParsePrice extracts the first amount in s, such as "₹1,234.50", and
// returns it in minor units. Negative amounts and amounts too large for
// Money are rejected.
func ParsePrice(s string) (pricing.Money, error) {
	loc := priceRe.FindStringIndex(s)
	if loc == nil {
		return 0, fmt.Errorf("%w: %q", ErrPriceNotFound, strings.TrimSpace(s))
	}
	raw := s[loc[0]:loc[1]]
	if prefix := s[:loc[0]]; strings.HasSuffix(prefix, "-") || strings.HasSuffix(strings.TrimRight(prefix, "₹Rs."), "-") {
		return 0, fmt.Errorf("pricefeed: negative price %q", strings.TrimSpace(s))
	}
	raw = strings.ReplaceAll(raw, ",", "")
	whole, frac, _ := strings.Cut(raw, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("pricefeed: too many decimals in %q", raw)
	}
	frac += strings.Repeat("0", 2-len(frac))
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("pricefeed: parse %q: %w", raw, err)
	}
	if major > (math.MaxInt64-99)/100 {
		return 0, fmt.Errorf("pricefeed: price %q out of range", raw)
	}
	minor, _ := strconv.ParseInt(frac, 10, 64)
	return pricing.Money(major*100 + minor), nil
}

// Fetcher downloads vendor product pages and reads the price from them. Each
// vendor gets its own circuit breaker.
type Fetcher struct {
	Client      *http.Client
	Breakers    *resilience.Breakers
	Timeout     time.Duration
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	UserAgent   string
}

// Fetch loads url and returns the price found under selector.
func (f *Fetcher) Fetch(ctx context.Context, vendor, url, selector string) (pricing.Money, error) {
	if strings.TrimSpace(selector) == "" {
		return 0, fmt.Errorf("pricefeed: no price selector for %s", vendor)
	}
	doc, err := f.document(ctx, vendor, url)
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(doc.Find(selector).First().Text())
	if text == "" {
		return 0, ErrPriceNotFound
	}
	price, err := ParsePrice(text)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, ErrPriceNotFound
	}
	return price, nil
}

func (f *Fetcher) document(ctx context.Context, vendor, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("pricefeed: build request: %w", err)
	}
	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	client := resilience.HTTPClient{
		Client:      f.Client,
		BaseBackoff: f.BaseBackoff,
		MaxAttempts: f.MaxAttempts,
		Jitter:      f.Jitter,
		Timeout:     f.Timeout,
	}
	if f.Breakers != nil {
		client.Breaker = f.Breakers.For(vendor)
	}
	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("pricefeed: fetch %s: %w", vendor, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, ErrProductGone
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("pricefeed: fetch %s: status %d", vendor, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("pricefeed: parse html: %w", err)
	}
	return doc, nil
}
