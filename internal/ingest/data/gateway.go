package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/media-index-backend/internal/conf"
	"github.com/lk2023060901/media-index-backend/internal/ingest/biz"
)

const defaultRetryAfter = 30 * time.Second

// GatewaySource pulls stream history from the stream gateway's paging API.
// It implements biz.MessageSource.
type GatewaySource struct {
	baseURL  string
	token    string
	pageSize int
	client   *http.Client
	logger   *zap.Logger
}

func NewGatewaySource(cfg *conf.GatewayConfig, logger *zap.Logger) *GatewaySource {
	return &GatewaySource{
		baseURL:  cfg.BaseURL,
		token:    cfg.Token,
		pageSize: cfg.PageSize,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

// Messages opens a lazy iterator over the window. Pages are fetched on
// demand, newest first, walking below_id down until the skip floor.
func (g *GatewaySource) Messages(ctx context.Context, w biz.Window) (biz.MessageIterator, error) {
	return &pageIterator{
		src:     g,
		stream:  w.StreamID,
		belowID: w.EndMessageID + 1,
		floor:   w.Skip,
	}, nil
}

// gatewayMessage mirrors the gateway's JSON message shape.
type gatewayMessage struct {
	ID      int64         `json:"id"`
	Empty   bool          `json:"empty"`
	Caption string        `json:"caption"`
	Media   *gatewayMedia `json:"media"`
}

type gatewayMedia struct {
	Type     string `json:"type"`
	FileRef  string `json:"file_ref"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

type messagesResponse struct {
	Messages []gatewayMessage `json:"messages"`
}

type pageIterator struct {
	src     *GatewaySource
	stream  string
	belowID int64
	floor   int64
	page    []gatewayMessage
	pos     int
	drained bool
}

func (it *pageIterator) Next(ctx context.Context) (*biz.StreamMessage, error) {
	for {
		if it.pos < len(it.page) {
			m := it.page[it.pos]
			it.pos++
			if m.ID <= it.floor {
				it.drained = true
				return nil, io.EOF
			}
			it.belowID = m.ID
			return toStreamMessage(&m), nil
		}

		if it.drained {
			return nil, io.EOF
		}

		page, err := it.src.fetchPage(ctx, it.stream, it.belowID)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			it.drained = true
			return nil, io.EOF
		}
		it.page = page
		it.pos = 0
	}
}

func (g *GatewaySource) fetchPage(ctx context.Context, stream string, belowID int64) ([]gatewayMessage, error) {
	endpoint := fmt.Sprintf("%s/api/v1/streams/%s/messages", g.baseURL, url.PathEscape(stream))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("below_id", strconv.FormatInt(belowID, 10))
	q.Set("limit", strconv.Itoa(g.pageSize))
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &biz.RateLimitError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gateway returned HTTP %d: %s", resp.StatusCode, body)
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	g.logger.Debug("fetched history page",
		zap.String("stream", stream),
		zap.Int64("below_id", belowID),
		zap.Int("messages", len(parsed.Messages)),
	)
	return parsed.Messages, nil
}

// retryAfter reads the Retry-After header in seconds, falling back to a
// conservative default when absent or unparsable.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryAfter
}

func toStreamMessage(m *gatewayMessage) *biz.StreamMessage {
	msg := &biz.StreamMessage{
		ID:      m.ID,
		Empty:   m.Empty,
		Caption: m.Caption,
	}
	if m.Media != nil {
		msg.Media = &biz.StreamMedia{
			Type:     m.Media.Type,
			FileRef:  m.Media.FileRef,
			FileName: m.Media.FileName,
			FileSize: m.Media.FileSize,
		}
	}
	return msg
}
