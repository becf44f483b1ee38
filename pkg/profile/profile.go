package profile

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Scheme is the URL prefix shared by all AstroVPN profile links.
const Scheme = "astrovpn://"

// Profile is a single connection profile. Field order matches the
// canonical payload key order.
type Profile struct {
	Name          string `json:"name"`
	Server        string `json:"server"`
	DomainService string `json:"domain_service"`
	KeyURL        string `json:"key_url"`
	Description   string `json:"description"`
}

var (
	ErrInvalidScheme     = errors.New("not an astrovpn:// url")
	ErrMalformedEncoding = errors.New("invalid base64 payload")
	ErrMalformedPayload  = errors.New("invalid profile payload")
	ErrInvalidProfile    = errors.New("invalid profile")
)

// EncodeURL renders p as an astrovpn:// URL: the compact JSON payload,
// base64-encoded with the standard padded alphabet, behind the scheme
// prefix. Equal records always produce identical URLs.
func EncodeURL(p Profile) (string, error) {
	payload, err := MarshalPayload(p)
	if err != nil {
		return "", err
	}
	return Scheme + base64.StdEncoding.EncodeToString(payload), nil
}

// MarshalPayload returns the canonical compact JSON form of p. HTML
// escaping is disabled so URLs with query strings survive byte-for-byte.
func MarshalPayload(p Profile) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalIndent returns the two-space indented JSON dump of p,
// preserving canonical key order.
func MarshalIndent(p Profile) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodePayload strips the scheme prefix and base64-decodes the
// remainder. It does not touch the JSON inside.
func DecodePayload(url string) ([]byte, error) {
	if !strings.HasPrefix(url, Scheme) {
		return nil, ErrInvalidScheme
	}
	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, Scheme))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	return payload, nil
}

// Unmarshal decodes a JSON payload into a Profile. Missing fields are
// left zero-valued; use ParsePayload for validation.
func Unmarshal(payload []byte) (Profile, error) {
	var p Profile
	if err := json.Unmarshal(payload, &p); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return p, nil
}

// DecodeURL decodes an astrovpn:// URL into the record it carries,
// without validating field contents.
func DecodeURL(url string) (Profile, error) {
	payload, err := DecodePayload(url)
	if err != nil {
		return Profile{}, err
	}
	return Unmarshal(payload)
}
