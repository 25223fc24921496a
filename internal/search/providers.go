package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/emailharvester/internal/model"
)

// Provider endpoints.
const (
	DefaultSerpAPIURL = "https://serpapi.com/search.json"
	DefaultBingURL    = "https://api.bing.microsoft.com/v7.0/search"
)

// DefaultDuckDuckGoURLs are the HTML endpoints tried in order.
var DefaultDuckDuckGoURLs = []string{
	"https://html.duckduckgo.com/html/",
	"https://duckduckgo.com/html/",
}

// maxResponseSize caps provider response bodies.
const maxResponseSize = 5 << 20

// errNotOK marks non-200 DuckDuckGo responses, which are skipped silently.
var errNotOK = errors.New("unexpected status")

// serpAPIResponse is the subset of a SerpAPI payload we read.
type serpAPIResponse struct {
	OrganicResults []struct {
		Link string `json:"link"`
		URL  string `json:"url"`
	} `json:"organic_results"`
}

// searchSerpAPI queries SerpAPI's Google engine.
func (b *FallbackBackend) searchSerpAPI(ctx context.Context, query string, num int) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", "google")
	params.Set("num", strconv.Itoa(num))
	params.Set("api_key", b.serpAPIKey)

	body, err := b.get(ctx, b.serpAPIURL+"?"+params.Encode(), nil, true)
	if err != nil {
		return nil, err
	}

	var payload serpAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: serpapi returned invalid JSON: %w", model.ErrProvider, err)
	}

	urls := make([]string, 0, len(payload.OrganicResults))
	for _, item := range payload.OrganicResults {
		link := item.Link
		if link == "" {
			link = item.URL
		}
		if link != "" {
			urls = append(urls, link)
		}
	}
	return urls, nil
}

// bingResponse is the subset of a Bing Web Search payload we read.
type bingResponse struct {
	WebPages struct {
		Value []struct {
			URL string `json:"url"`
		} `json:"value"`
	} `json:"webPages"`
}

// searchBing queries the Bing Web Search API.
func (b *FallbackBackend) searchBing(ctx context.Context, query string, num int) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(num))
	params.Set("textDecorations", "false")
	params.Set("textFormat", "Raw")

	header := http.Header{}
	header.Set("Ocp-Apim-Subscription-Key", b.bingKey)

	body, err := b.get(ctx, b.bingURL+"?"+params.Encode(), header, true)
	if err != nil {
		return nil, err
	}

	var payload bingResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: bing returned invalid JSON: %w", model.ErrProvider, err)
	}

	urls := make([]string, 0, len(payload.WebPages.Value))
	for _, item := range payload.WebPages.Value {
		if item.URL != "" {
			urls = append(urls, item.URL)
		}
	}
	return urls, nil
}

// searchDuckDuckGo scrapes the DuckDuckGo HTML endpoints. Each endpoint is
// tried until one yields results; a politeness delay follows every endpoint
// that did not.
func (b *FallbackBackend) searchDuckDuckGo(ctx context.Context, query string, num int, minDelay, maxDelay float64) []string {
	var urls []string

	for _, base := range b.duckDuckGoURLs {
		if ctx.Err() != nil {
			break
		}

		body, err := b.get(ctx, base+"?"+url.Values{"q": {query}}.Encode(), nil, false)
		if err == nil {
			urls = parseDuckDuckGo(body, num)
			if len(urls) > 0 {
				break
			}
		} else if !errors.Is(err, errNotOK) {
			b.logger.Debug("duckduckgo search failed", "error", err)
		}

		b.sleep(ctx, minDelay, maxDelay)
	}

	if len(urls) > num {
		urls = urls[:num]
	}
	return urls
}

// parseDuckDuckGo extracts result links from a DuckDuckGo HTML page,
// unwrapping redirect links and skipping DuckDuckGo's own pages.
func parseDuckDuckGo(body []byte, num int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}

	urls := make([]string, 0, num)
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if decoded := decodeDuckDuckGoHref(href); strings.HasPrefix(decoded, "http") {
			href = decoded
		}
		if strings.HasPrefix(href, "javascript:") || strings.Contains(href, "duckduckgo.com") {
			return true
		}
		if strings.HasPrefix(href, "http") {
			urls = append(urls, href)
		}
		return len(urls) < num
	})
	return urls
}

// decodeDuckDuckGoHref unwraps the target of a "/l/?uddg=..." redirect link.
// Links without a uddg parameter are returned unchanged.
func decodeDuckDuckGoHref(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	if u, err := url.Parse(href); err == nil {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	encoded := href[strings.LastIndex(href, "uddg=")+len("uddg="):]
	if decoded, err := url.QueryUnescape(encoded); err == nil {
		return decoded
	}
	return encoded
}

// get performs a GET with the backend's user agent. With strict set, any
// non-2xx status is an error; otherwise only 200 is accepted and other
// statuses return errNotOK.
func (b *FallbackBackend) get(ctx context.Context, rawURL string, header http.Header, strict bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %w", model.ErrProvider, err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrProvider, err)
	}
	defer resp.Body.Close()

	if strict && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, fmt.Errorf("%w: HTTP %d", model.ErrProvider, resp.StatusCode)
	}
	if !strict && resp.StatusCode != http.StatusOK {
		return nil, errNotOK
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", model.ErrProvider, err)
	}
	return body, nil
}
