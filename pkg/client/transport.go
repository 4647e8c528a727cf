package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fixora/authapi/domain/valueobject"
)

var (
	ErrNotAuthenticated = errors.New("client: not authenticated")
	// ErrSessionExpired means the refresh token was rejected; the caller has
	// to authenticate again.
	ErrSessionExpired = errors.New("client: session expired")
)

const defaultRefreshTimeout = 30 * time.Second

type refreshFunc func(ctx context.Context, pair valueobject.TokenPair) (valueobject.TokenPair, error)

// refreshingTransport attaches the stored access token and, on a 401,
// rotates the pair once and replays the request once. Concurrent 401s share
// a single rotation.
type refreshingTransport struct {
	base    http.RoundTripper
	store   TokenStore
	refresh refreshFunc
	group   singleflight.Group
	// timeout bounds the shared rotation, which does not follow the
	// cancellation of any single caller.
	timeout time.Duration
}

func (t *refreshingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	pair, ok := t.store.Get()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	body, err := snapshotBody(req)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(withBearer(req, pair.AccessToken, body))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	fresh, err := t.rotate(req.Context(), pair)
	if err != nil {
		return nil, err
	}
	return t.base.RoundTrip(withBearer(req, fresh.AccessToken, body))
}

// rotate refreshes stale unless another caller already replaced it. A caller
// that gives up stops waiting without aborting the rotation for the others.
func (t *refreshingTransport) rotate(ctx context.Context, stale valueobject.TokenPair) (valueobject.TokenPair, error) {
	detached := context.WithoutCancel(ctx)
	ch := t.group.DoChan("rotate", func() (interface{}, error) {
		current, ok := t.store.Get()
		if !ok {
			return nil, ErrSessionExpired
		}
		if current.AccessToken != stale.AccessToken {
			return current, nil
		}

		timeout := t.timeout
		if timeout <= 0 {
			timeout = defaultRefreshTimeout
		}
		rctx, cancel := context.WithTimeout(detached, timeout)
		defer cancel()

		fresh, err := t.refresh(rctx, current)
		if err != nil {
			t.store.Clear()
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		t.store.Set(fresh)
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		return valueobject.TokenPair{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return valueobject.TokenPair{}, res.Err
		}
		return res.Val.(valueobject.TokenPair), nil
	}
}

func snapshotBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	b, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read request body: %w", err)
	}
	return b, nil
}

func withBearer(req *http.Request, accessToken string, body []byte) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.ContentLength = int64(len(body))
	}
	return clone
}
