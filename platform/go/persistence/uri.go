package persistence

import (
	"fmt"
	"net/url"
	"strings"
)

// URIForDatabase substitutes the given database name into a base MongoDB
// connection URI. Both hosted-style URIs (mongodb+srv with query options) and
// plain local URIs (mongodb://host:port) are supported: the path segment is
// replaced, everything else is preserved.
func URIForDatabase(baseURI, databaseName string) (string, error) {
	if strings.TrimSpace(baseURI) == "" {
		return "", fmt.Errorf("base connection uri is required")
	}
	if strings.TrimSpace(databaseName) == "" {
		return "", fmt.Errorf("database name is required")
	}

	u, err := url.Parse(baseURI)
	if err != nil {
		return "", fmt.Errorf("parse base connection uri: %w", err)
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return "", fmt.Errorf("unsupported connection uri scheme %q", u.Scheme)
	}

	u.Path = "/" + databaseName
	return u.String(), nil
}
