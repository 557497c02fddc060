// Package httputil provides the HTTP client shared by package index sources.
//
// # Overview
//
//   - [Client]: JSON GETs with default headers, response caching and
//     status classification ([ErrNotFound], [ErrNetwork])
//   - [Retry]: automatic retry with exponential backoff
//
// # Caching
//
// [Client.Cached] stores decoded values as JSON in any cache.Cache backend
// under the client's key prefix:
//
//	c := httputil.NewClient(backend, "pypi:", 24*time.Hour, nil)
//	var info projectInfo
//	err := c.Cached(ctx, "requests", false, &info, func() error {
//	    return c.Get(ctx, url, &info)
//	})
//
// # Retry
//
// [Retry] retries only errors wrapped in [RetryableError]. [Client] wraps
// network failures and 5xx responses; 404 and other 4xx responses fail
// immediately.
//
// Default settings: 10 second request timeout, 3 attempts, 1 second
// initial backoff.
package httputil
