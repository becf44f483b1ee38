package profile

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// payload mirrors the wire JSON including legacy keys still emitted by
// older desktop exports.
type payload struct {
	Name          string `json:"name"`
	Server        string `json:"server"`
	DomainIP      string `json:"domain_ip"`
	DomainService string `json:"domain_service"`
	KeyURL        string `json:"key_url"`
	Description   string `json:"description"`
}

// ParsePayload decodes a JSON payload and validates it. Unlike
// Unmarshal it rejects incomplete records, accepts domain_ip as a
// fallback for server, and derives a display name when none is set.
func ParsePayload(raw []byte) (Profile, error) {
	var pl payload
	if err := json.Unmarshal(raw, &pl); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	p := Profile{
		Name:          pl.Name,
		Server:        pl.Server,
		DomainService: pl.DomainService,
		KeyURL:        pl.KeyURL,
		Description:   pl.Description,
	}
	if p.Server == "" {
		p.Server = pl.DomainIP
	}
	if p.Name == "" && p.Server != "" {
		p.Name = "AstroVPN (" + p.Server + ")"
	}

	if err := Validate(p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// ParseStrict decodes an astrovpn:// URL in validating mode.
func ParseStrict(url string) (Profile, error) {
	raw, err := DecodePayload(url)
	if err != nil {
		return Profile{}, err
	}
	return ParsePayload(raw)
}

// Validate checks that p is complete enough to connect with: key_url
// and domain_service present and well formed, server non-empty.
func Validate(p Profile) error {
	if p.KeyURL == "" {
		return fmt.Errorf("%w: missing required field key_url", ErrInvalidProfile)
	}
	if p.DomainService == "" {
		return fmt.Errorf("%w: missing required field domain_service", ErrInvalidProfile)
	}
	if p.Server == "" {
		return fmt.Errorf("%w: either server or domain_ip must be set", ErrInvalidProfile)
	}
	if err := validDomainService(p.DomainService); err != nil {
		return fmt.Errorf("%w: domain_service %q: %v", ErrInvalidProfile, p.DomainService, err)
	}
	if !validHTTPURL(p.KeyURL) {
		return fmt.Errorf("%w: key_url %q must be an http(s) url", ErrInvalidProfile, p.KeyURL)
	}
	return nil
}

func validHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// validDomainService accepts a full http(s) URL or a host:port pair
// with a routable port and a hostname of at least three characters.
func validDomainService(s string) error {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if !validHTTPURL(s) {
			return fmt.Errorf("malformed url")
		}
		return nil
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return fmt.Errorf("want url or host:port")
	}
	if len(host) < 3 {
		return fmt.Errorf("hostname too short")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port out of range")
	}
	return nil
}
