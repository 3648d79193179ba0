// Package locator finds and fetches content on peers.
//
// A peer publishes the content with ID <hash>.<ext> at {peer}/data/<hash>/<hash>.<ext>.
// Exists is a cheap HEAD probe,
// so that scanning many peers for many IDs can skip the cost of a full transfer
// wherever the content is absent.
package locator

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/dh"
)

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 5 * DefaultConnectTimeout
	DefaultChunkSize      = 8192
)

// URL is the location of id on peer.
func URL(peer string, id dh.ID) string {
	h := id.Hash.String()
	return strings.TrimRight(peer, "/") + "/data/" + h + "/" + h + "." + id.Ext
}

// Client probes and fetches content from peers.
// The zero Client is not usable; call New.
type Client struct {
	hc *http.Client

	// ReadTimeout bounds a whole request,
	// from sending it to reading the last byte of the response.
	ReadTimeout time.Duration

	// ChunkSize is the size of each read of a response body.
	// Cancellation is checked between chunks.
	ChunkSize int

	// MaxSize, if positive, is the largest response body Fetch will accept.
	MaxSize int64
}

// New produces a Client whose connections must be established within connectTimeout
// and whose requests must complete within readTimeout.
// Non-positive values select the defaults.
func New(connectTimeout, readTimeout time.Duration) *Client {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Client{
		hc:          &http.Client{Transport: transport},
		ReadTimeout: readTimeout,
		ChunkSize:   DefaultChunkSize,
	}
}

// Exists tells whether peer answers a HEAD request for id with 200 OK.
// Every failure,
// including timeouts and other statuses,
// is reported as false.
func (c *Client) Exists(ctx context.Context, peer string, id dh.ID) bool {
	ctx, cancel := context.WithTimeout(ctx, c.ReadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, URL(peer, id), nil)
	if err != nil {
		return false
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Fetch gets the content for id from peer.
// Errors wrap dh.ErrNetwork,
// except for cancellation of ctx,
// which is reported as ctx.Err().
// On any error no bytes are returned.
func (c *Client) Fetch(ctx context.Context, peer string, id dh.ID) ([]byte, error) {
	return c.Get(ctx, URL(peer, id))
}

// Get is like Fetch but for an arbitrary URL.
// It is subject to the same timeouts, chunking, and size limit.
func (c *Client) Get(ctx context.Context, u string) ([]byte, error) {
	ctx2, cancel := context.WithTimeout(ctx, c.ReadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(dh.ErrNetwork, "constructing request for %s: %s", u, err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(dh.ErrNetwork, "getting %s: %s", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(dh.ErrNetwork, "getting %s: status %d", u, resp.StatusCode)
	}
	if c.MaxSize > 0 && resp.ContentLength > c.MaxSize {
		return nil, errors.Wrapf(dh.ErrNetwork, "getting %s: length %d exceeds limit %d", u, resp.ContentLength, c.MaxSize)
	}

	data, err := c.readChunks(ctx2, resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(dh.ErrNetwork, "reading %s: %s", u, err)
	}
	return data, nil
}

func (c *Client) readChunks(ctx context.Context, r io.Reader) ([]byte, error) {
	chunkSize := c.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var (
		data []byte
		buf  = make([]byte, chunkSize)
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		data = append(data, buf[:n]...)
		if c.MaxSize > 0 && int64(len(data)) > c.MaxSize {
			return nil, errors.Errorf("body exceeds limit %d", c.MaxSize)
		}
		if err == io.EOF {
			return data, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Ping tells whether peer is online:
// whether its base URL answers a GET at all.
// Any HTTP status counts as online.
func (c *Client) Ping(ctx context.Context, peer string) error {
	ctx, cancel := context.WithTimeout(ctx, c.ReadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(peer, "/")+"/", nil)
	if err != nil {
		return errors.Wrapf(dh.ErrNetwork, "constructing request for %s: %s", peer, err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrapf(dh.ErrNetwork, "pinging %s: %s", peer, err)
	}
	resp.Body.Close()
	return nil
}
