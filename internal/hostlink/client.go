package hostlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chesscraft-go/internal/board"
	"github.com/park285/chesscraft-go/internal/panel"
	"github.com/park285/chesscraft-go/internal/terrain"
	"github.com/valyala/fasthttp"
)

var ErrStatus = errors.New("host api error")

// Client talks to the host bridge's HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithRetry(attempts int) Option {
	return func(c *Client) { c.retryMax = attempts }
}

// WithDial replaces the dialer, e.g. with an in-memory listener in tests.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/config", nil, &cfg, true); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) SendMessage(ctx context.Context, player, text string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/message", messageRequest{Player: player, Text: text}, nil, false)
}

func (c *Client) Broadcast(ctx context.Context, text string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/broadcast", messageRequest{Text: text}, nil, false)
}

// PaintSigns sets the text and lit state of panel signs. Painting is
// idempotent, so it is retried.
func (c *Client) PaintSigns(ctx context.Context, world string, signs []panel.Sign) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/signs", signsRequest{World: world, Signs: signs}, nil, true)
}

// PaintPosition asks the host to draw the pieces of fen on a board.
func (c *Client) PaintPosition(ctx context.Context, world, boardName, fen string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/position", positionRequest{World: world, Board: boardName, FEN: fen}, nil, true)
}

// GetBlocks implements terrain.World.
func (c *Client) GetBlocks(ctx context.Context, region board.Cuboid) ([]terrain.Block, error) {
	var resp blocksResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/blocks/get", blocksRequest{Region: region}, &resp, true); err != nil {
		return nil, err
	}
	return resp.Blocks, nil
}

// SetBlocks implements terrain.World.
func (c *Client) SetBlocks(ctx context.Context, world string, blocks []terrain.Block) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/blocks/set", setBlocksRequest{World: world, Blocks: blocks}, nil, true)
}

func (c *Client) Teleport(ctx context.Context, player, world string, pos board.Point) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/teleport", teleportRequest{Player: player, World: world, Pos: pos}, nil, false)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request %s: %w", path, err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			lastErr = fmt.Errorf("%w: %s status=%d body=%s", ErrStatus, path, status, truncate(string(resp.Body()), 512))
			if !shouldRetryStatus(status) {
				return lastErr
			}
		} else {
			if out != nil {
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		}
		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
