package querycache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// maxBody bounds how much of a response body is read and cached.
const maxBody = 8 << 20

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http error: status %d", e.StatusCode)
}

// Options controls a single FetchCached call.
type Options struct {
	Params       map[string]string
	TTL          time.Duration
	ForceRefresh bool
	Header       http.Header
}

// Fetcher issues GET requests through a Cache.
type Fetcher struct {
	Cache  *Cache
	Client *http.Client
}

// NewFetcher returns a Fetcher. A nil client means http.DefaultClient.
func NewFetcher(cache *Cache, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{Cache: cache, Client: client}
}

// FetchCached returns the body of GET rawURL with opts.Params appended.
//
// Unless ForceRefresh is set, a valid cached entry is returned immediately and
// a request already in flight for the same key is joined. Otherwise one
// request is issued; its body is cached only on a 2xx response, and the
// pending marker is cleared whatever the outcome. All joined callers observe
// the same body or the same error.
func (f *Fetcher) FetchCached(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	key := Key(rawURL, opts.Params)

	call, data, hit, owner := f.Cache.begin(key, opts.ForceRefresh)
	switch {
	case hit:
		hits.Inc()
		log.Debug().Str("key", key).Msg("cache hit")
		return data, nil
	case !owner:
		pendingJoins.Inc()
		log.Debug().Str("key", key).Msg("cache pending")
		return call.Wait(ctx)
	}

	misses.Inc()
	log.Debug().Str("key", key).Msg("cache miss")

	// The shared request outlives any single caller; only the client timeout bounds it.
	go func(ctx context.Context) {
		body, err := f.do(ctx, rawURL, opts)
		if err == nil {
			f.Cache.Set(key, body, opts.TTL)
		}
		f.Cache.clearPendingIf(key, call)
		call.Finish(body, err)
	}(context.WithoutCancel(ctx))

	return call.Wait(ctx)
}

// begin atomically resolves key to a cached payload, an in-flight call to
// join, or a new call owned by the caller.
func (c *Cache) begin(key string, force bool) (call *Call, data []byte, hit, owner bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !force {
		if e, ok := c.entries[key]; ok {
			if c.Now().Sub(e.Timestamp) <= e.TTL {
				return nil, e.Data, true, false
			}
			delete(c.entries, key)
			entriesGauge.Set(float64(len(c.entries)))
		}
		if p, ok := c.pending[key]; ok {
			return p, nil, false, false
		}
	}
	call = NewCall()
	c.pending[key] = call
	return call, nil, false, true
}

func (f *Fetcher) do(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(opts.Params) > 0 {
		q := u.Query()
		for k, v := range opts.Params {
			q.Add(k, v)
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: u.String()}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
