package maintenance

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/starnight-hq/starnight-client/internal/logger"
	"github.com/starnight-hq/starnight-client/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 256 << 10
	DefaultCooldown  = 30 * time.Second
	defaultTimeout   = 5 * time.Second
)

// Notice is what the maintenance page told the user.
type Notice struct {
	Target    string    `json:"target"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	FetchedAt time.Time `json:"fetched_at"`
}

// PageNavigator stands in for a browser's full-page navigation: it loads the
// static maintenance page from the application origin and keeps its notice.
type PageNavigator struct {
	client   httpclient.Client
	origin   *url.URL
	cooldown time.Duration
	log      logger.Logger
	now      func() time.Time

	mu          sync.Mutex
	navigatedAt time.Time
	last        *Notice
}

var _ httpclient.Navigator = (*PageNavigator)(nil)

// NewPageNavigator builds a navigator for the application at origin. The
// client must not carry session credentials; a cookie-less one is used when nil.
func NewPageNavigator(origin string, client httpclient.Client, log logger.Logger) (*PageNavigator, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid application origin %q", origin)
	}
	if client == nil {
		client = httpclient.NewRestyClient(defaultTimeout)
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &PageNavigator{
		client:   client,
		origin:   u,
		cooldown: DefaultCooldown,
		log:      log,
		now:      time.Now,
	}, nil
}

// SetCooldown changes the window in which repeated navigations collapse into one.
func (n *PageNavigator) SetCooldown(d time.Duration) { n.cooldown = d }

// Navigate loads target. Calls within the cooldown of a previous navigation are dropped.
func (n *PageNavigator) Navigate(ctx context.Context, target string) error {
	n.mu.Lock()
	now := n.now()
	if !n.navigatedAt.IsZero() && now.Sub(n.navigatedAt) < n.cooldown {
		n.mu.Unlock()
		return nil
	}
	n.navigatedAt = now
	n.mu.Unlock()

	ref, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parse maintenance target: %w", err)
	}
	pageURL := n.origin.ResolveReference(ref).String()

	notice, err := n.fetchNotice(ctx, pageURL)
	if err != nil {
		return err
	}
	notice.Target = target

	n.mu.Lock()
	n.last = &notice
	n.mu.Unlock()

	n.log.WarnObj("application under maintenance", "maintenance_notice", notice)
	return nil
}

// LastNotice returns the notice of the most recent successful navigation.
func (n *PageNavigator) LastNotice() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last == nil {
		return Notice{}, false
	}
	return *n.last, true
}

func (n *PageNavigator) fetchNotice(ctx context.Context, pageURL string) (Notice, error) {
	resp, err := n.client.Get(ctx, pageURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return Notice{}, fmt.Errorf("fetch maintenance page: %w", err)
	}
	if resp.StatusCode() != 200 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return Notice{}, fmt.Errorf("maintenance page status %d: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}
	notice, err := parseNotice(body)
	if err != nil {
		return Notice{}, err
	}
	notice.FetchedAt = n.now().UTC()
	return notice, nil
}

func parseNotice(body []byte) (Notice, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Notice{}, fmt.Errorf("parse html: %w", err)
	}

	metaContent := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return Notice{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Message: firstNonEmpty(
			collapseSpace(doc.Find("#maintenance-message").First().Text()),
			metaContent(`meta[name="description"]`),
			collapseSpace(doc.Find("main p, body p").First().Text()),
		),
	}, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
