package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/spacapture/config"
)

// maxBody caps documents and stylesheets read by the static engine.
const maxBody = 10 << 20

// ErrBodyTooLarge is returned when a response exceeds the body limit.
// A partial stylesheet is never inlined.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// StaticConfig configures a StaticEngine.
type StaticConfig struct {
	// UserAgent sent with every request; a Chrome UA when empty.
	UserAgent string

	// FetchTimeout bounds each stylesheet fetch. Default: 10s.
	FetchTimeout time.Duration

	// Client overrides the HTTP client (tests use httptest clients).
	Client *http.Client

	// MaxBody caps each response body in bytes. Default: 10 MiB.
	MaxBody int64

	Logger *slog.Logger
}

// StaticEngine renders nothing: it fetches the document over plain HTTP and
// exposes it as a mutable DOM. In-page scripts are implemented natively, so
// pages that build their markup with JavaScript come out as their shell.
type StaticEngine struct {
	client       *http.Client
	userAgent    string
	fetchTimeout time.Duration
	maxBody      int64
	logger       *slog.Logger
}

// NewStaticEngine creates a StaticEngine with a Chrome-like TLS fingerprint.
func NewStaticEngine(cfg StaticConfig) *StaticEngine {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Client == nil {
		cfg.Client = newChromeClient()
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = maxBody
	}
	return &StaticEngine{
		client:       cfg.Client,
		userAgent:    cfg.UserAgent,
		fetchTimeout: cfg.FetchTimeout,
		maxBody:      cfg.MaxBody,
		logger:       cfg.Logger,
	}
}

func newChromeClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("static: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

func (e *StaticEngine) Name() string { return config.EngineStatic }

func (e *StaticEngine) NewPage(ctx context.Context) (Page, error) {
	return &staticPage{engine: e}, nil
}

func (e *StaticEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// get performs a GET and returns the response with its body read.
// Any status is returned; the caller decides what counts as failure.
func (e *StaticEngine) get(ctx context.Context, target string, accept string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("static: build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("static: request %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody+1))
	if err != nil {
		return nil, nil, fmt.Errorf("static: read body: %w", err)
	}
	if int64(len(body)) > e.maxBody {
		return nil, nil, fmt.Errorf("static: %s: %w (%d bytes)", target, ErrBodyTooLarge, e.maxBody)
	}
	return resp, body, nil
}
