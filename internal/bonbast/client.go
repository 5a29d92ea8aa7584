/**
 * @description
 * HTTP client for the bonbast.com price source.
 * The source serves quotes only to browser-looking clients and requires a rotating
 * session parameter scraped from its landing page before the JSON endpoint answers.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - github.com/PuerkitoBio/goquery: inline <script> extraction
 * - backend/internal/config
 * - backend/internal/currency
 *
 * @notes
 * - ErrParamNotFound means the page structure changed; it is deliberately distinct
 *   from plain network errors so operators can tell outage from integration breakage.
 */

package bonbast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tomanchart/backend/internal/config"
	"github.com/tomanchart/backend/internal/currency"
)

const (
	DefaultBaseURL = "https://www.bonbast.com"
	DefaultTimeout = 12 * time.Second
)

var (
	// ErrParamNotFound signals the session parameter is missing from the landing page.
	ErrParamNotFound = errors.New("bonbast session param not found (site structure changed?)")
	// ErrBadPayload signals the JSON endpoint returned something other than an object.
	ErrBadPayload = errors.New("invalid JSON response from bonbast")
	// ErrNoQuotes signals that no tracked instrument could be extracted from the payload.
	ErrNoQuotes = errors.New("no prices extracted (keys missing?)")
)

var paramPattern = regexp.MustCompile(`param:\s*"([^"]+)"`)

// trackedKeys maps bonbast /json payload keys to canonical currencies:
// usd1 (dollar sell), eur1 (euro sell), gol18 (18k gold gram), emami1 (Emami coin).
var trackedKeys = []struct {
	key string
	cur currency.Currency
}{
	{"usd1", currency.USD},
	{"eur1", currency.EUR},
	{"gol18", currency.GoldGram},
	{"emami1", currency.GoldCoin},
}

// Quote is one extracted (currency, price) pair.
type Quote struct {
	Currency currency.Currency `json:"currency"`
	Price    int64             `json:"price"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	base := cfg.Source.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Source.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: base,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchQuotes performs the two-step scrape-then-fetch and returns the tracked quotes.
// Missing or unparseable instruments are skipped individually; an empty result after
// filtering is reported as ErrNoQuotes.
func (c *Client) FetchQuotes(ctx context.Context) ([]Quote, error) {
	param, err := c.fetchSessionParam(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := c.fetchJSON(ctx, param)
	if err != nil {
		return nil, err
	}

	quotes := extractQuotes(payload)
	if len(quotes) == 0 {
		return nil, ErrNoQuotes
	}
	return quotes, nil
}

// fetchSessionParam loads the landing page and pattern-matches the rotating param
// out of the raw markup and every inline <script> body.
func (c *Client) fetchSessionParam(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/", nil)
	if err != nil {
		return "", err
	}
	c.applyBrowserHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch bonbast landing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", fmt.Errorf("bonbast landing page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read bonbast landing page: %w", err)
	}
	html := string(body)

	// The param usually lives in an inline script; search the raw markup too.
	haystack := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		var scripts strings.Builder
		doc.Find("script").Each(func(_ int, s *goquery.Selection) {
			scripts.WriteString(s.Text())
			scripts.WriteString("\n")
		})
		haystack = html + "\n" + scripts.String()
	}

	match := paramPattern.FindStringSubmatch(haystack)
	if len(match) < 2 || match[1] == "" {
		return "", ErrParamNotFound
	}
	return match[1], nil
}

// fetchJSON submits the session param form-encoded and decodes the quote payload.
func (c *Client) fetchJSON(ctx context.Context, param string) (map[string]any, error) {
	form := url.Values{}
	form.Set("param", param)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/json", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	c.applyBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Origin", c.BaseURL)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bonbast json: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bonbast json endpoint returned status %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if payload == nil {
		return nil, ErrBadPayload
	}
	return payload, nil
}

// applyBrowserHeaders makes the request look like a regular browser; bonbast
// actively rejects obvious non-browser clients.
func (c *Client) applyBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Referer", c.BaseURL+"/")
}

func extractQuotes(payload map[string]any) []Quote {
	quotes := make([]Quote, 0, len(trackedKeys))
	for _, tk := range trackedKeys {
		raw, ok := payload[tk.key]
		if !ok {
			continue
		}
		price, ok := parsePrice(raw)
		if !ok {
			continue
		}
		quotes = append(quotes, Quote{Currency: tk.cur, Price: price})
	}
	return quotes
}

// parsePrice accepts JSON numbers and strings, tolerating thousands separators
// and surrounding whitespace.
func parsePrice(v any) (int64, bool) {
	switch val := v.(type) {
	case float64:
		return int64(val), true
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(val, ",", ""))
		if cleaned == "" {
			return 0, false
		}
		n, err := strconv.ParseInt(cleaned, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
