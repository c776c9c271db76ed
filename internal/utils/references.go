package utils

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ReferenceType represents the type of reference string
type ReferenceType int

const (
	ReferenceTypeUnknown ReferenceType = iota
	ReferenceTypeURL
	ReferenceTypeFilePath
	ReferenceTypeFragment
)

// ReferenceClassification holds the result of classifying a reference string
type ReferenceClassification struct {
	Type      ReferenceType
	Original  string
	ParsedURL *url.URL
}

func (rc *ReferenceClassification) IsURL() bool {
	return rc.Type == ReferenceTypeURL
}

func (rc *ReferenceClassification) IsFile() bool {
	return rc.Type == ReferenceTypeFilePath
}

func (rc *ReferenceClassification) IsFragment() bool {
	return rc.Type == ReferenceTypeFragment
}

// ClassifyReference determines if a string represents a URL, file path, or JSON Pointer fragment.
func ClassifyReference(ref string) (*ReferenceClassification, error) {
	if ref == "" {
		return nil, errors.New("empty reference")
	}

	result := &ReferenceClassification{
		Original: ref,
	}

	if strings.HasPrefix(ref, "#") {
		result.Type = ReferenceTypeFragment
		return result, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		// Paths with characters url.Parse rejects (spaces with %, etc.) are still valid on disk.
		result.Type = ReferenceTypeFilePath
		return result, nil //nolint:nilerr
	}

	// A single letter scheme is a Windows drive letter, not a URL.
	if u.Scheme != "" && len(u.Scheme) > 1 {
		result.Type = ReferenceTypeURL
		result.ParsedURL = u
		return result, nil
	}

	result.Type = ReferenceTypeFilePath
	return result, nil
}

// IsAbsoluteURL reports whether ref is an absolute http(s) URL.
func IsAbsoluteURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// IsURL returns true if the reference string represents a URL
func IsURL(ref string) bool {
	classification, err := ClassifyReference(ref)
	if err != nil {
		return false
	}
	return classification.IsURL()
}

// SplitReference splits a reference into its document part and its fragment (without the "#").
func SplitReference(ref string) (string, string) {
	uri, fragment, _ := strings.Cut(ref, "#")
	return strings.TrimSpace(uri), strings.TrimSpace(fragment)
}

// JoinWith joins this classified reference with a relative reference.
// URLs are resolved following RFC 3986, file paths are joined with the
// directory of the original path and fragments replace any existing fragment.
func (rc *ReferenceClassification) JoinWith(relative string) (string, error) {
	if relative == "" {
		return rc.Original, nil
	}

	if strings.HasPrefix(relative, "#") {
		base, _, _ := strings.Cut(rc.Original, "#")
		return base + relative, nil
	}

	switch rc.Type {
	case ReferenceTypeURL:
		return rc.joinURL(relative)
	case ReferenceTypeFragment:
		return relative, nil
	default:
		return rc.joinFilePath(relative), nil
	}
}

func (rc *ReferenceClassification) joinURL(relative string) (string, error) {
	baseURL := rc.ParsedURL
	if baseURL == nil {
		var err error
		baseURL, err = url.Parse(rc.Original)
		if err != nil {
			return "", fmt.Errorf("invalid base URL: %w", err)
		}
	}

	relativeURL, err := url.Parse(relative)
	if err != nil {
		return "", fmt.Errorf("invalid relative URL: %w", err)
	}

	return baseURL.ResolveReference(relativeURL).String(), nil
}

func (rc *ReferenceClassification) joinFilePath(relative string) string {
	if filepath.IsAbs(relative) || strings.HasPrefix(relative, "/") {
		return filepath.ToSlash(filepath.Clean(relative))
	}

	joined := filepath.Join(filepath.Dir(rc.Original), relative)
	return filepath.ToSlash(joined)
}

// JoinReference is a convenience function that classifies the base reference and joins it with a relative reference.
func JoinReference(base, relative string) (string, error) {
	if base == "" {
		return relative, nil
	}

	baseClassification, err := ClassifyReference(base)
	if err != nil {
		return "", fmt.Errorf("invalid base reference: %w", err)
	}

	return baseClassification.JoinWith(relative)
}
