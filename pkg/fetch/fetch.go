package fetch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/astral-step/astrovpn/pkg/profile"
)

const (
	userAgent      = "AstroVPN/1.0"
	maxConfigSize  = 1 << 20
	connectTimeout = 15 * time.Second
	defaultTimeout = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	// Timeout bounds a whole request including body read. Zero means
	// the default of 30s.
	Timeout time.Duration
	// Insecure skips TLS certificate verification.
	Insecure bool
}

// Client talks to a profile's domain service and key server.
type Client struct {
	httpClient *http.Client
}

// New creates a Client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: connectTimeout,
	}
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		fmt.Fprintf(os.Stderr, "WARNING: TLS certificate verification disabled\n")
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Result is a downloaded OpenVPN config with its resolution metadata.
type Result struct {
	Config     []byte
	ResolvedIP string
	KeyURL     string
}

// Fetch resolves the substitution IP via the profile's domain service,
// rewrites the key URL host and downloads the OpenVPN config.
func (c *Client) Fetch(ctx context.Context, p profile.Profile) (*Result, error) {
	ip, err := c.ResolveIP(ctx, p.DomainService)
	if err != nil {
		return nil, err
	}

	keyURL, err := SubstituteHost(p.KeyURL, ip)
	if err != nil {
		return nil, err
	}

	cfg, err := c.DownloadConfig(ctx, keyURL)
	if err != nil {
		return nil, err
	}

	return &Result{Config: cfg, ResolvedIP: ip, KeyURL: keyURL}, nil
}

// ResolveIP queries the domain service for the substitution address.
// The response must be {"ip": "<IPv4>"}.
func (c *Client) ResolveIP(ctx context.Context, domainService string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, NormalizeDomainService(domainService), nil)
	if err != nil {
		return "", fmt.Errorf("build domain service request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("query domain service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("domain service returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxConfigSize))
	if err != nil {
		return "", fmt.Errorf("read domain service response: %w", err)
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("parse domain service response: %w", err)
	}
	if payload.IP == "" {
		return "", fmt.Errorf("domain service response missing 'ip'")
	}
	if ip := net.ParseIP(payload.IP); ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("domain service returned invalid ip %q", payload.IP)
	}

	return payload.IP, nil
}

// DownloadConfig fetches the OpenVPN config behind keyURL. Responses
// above 1 MiB or not resembling an OpenVPN config are rejected.
func (c *Client) DownloadConfig(ctx context.Context, keyURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, keyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build key server request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/plain, application/x-openvpn-profile")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key server returned HTTP %d", resp.StatusCode)
	}
	if resp.ContentLength > maxConfigSize {
		return nil, fmt.Errorf("config too large: %d bytes", resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(body) > maxConfigSize {
		return nil, fmt.Errorf("config too large: exceeds %d bytes", maxConfigSize)
	}
	if !LooksLikeOpenVPN(body) {
		return nil, fmt.Errorf("downloaded content does not look like an OpenVPN config")
	}

	return body, nil
}

// NormalizeDomainService turns a bare host:port into a plain http URL.
func NormalizeDomainService(domainService string) string {
	if strings.HasPrefix(domainService, "http://") || strings.HasPrefix(domainService, "https://") {
		return domainService
	}
	return "http://" + domainService
}

// SubstituteHost replaces the hostname of keyURL with ip, keeping
// scheme, port, path, query and fragment.
func SubstituteHost(keyURL, ip string) (string, error) {
	u, err := url.Parse(keyURL)
	if err != nil {
		return "", fmt.Errorf("parse key url: %w", err)
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(ip, port)
	} else {
		u.Host = ip
	}
	return u.String(), nil
}

// LooksLikeOpenVPN reports whether data contains any of the usual
// OpenVPN directives.
func LooksLikeOpenVPN(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	cfg := strings.ToLower(string(data))
	for _, directive := range []string{"client", "remote", "dev tun", "dev tap", "proto"} {
		if strings.Contains(cfg, directive) {
			return true
		}
	}
	return false
}
