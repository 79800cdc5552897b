package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"
)

var ErrNotFound = errors.New("object not found")

// ObjectStore holds uploaded binaries under stable keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// PublicURL derives the address clients fetch key from.
	PublicURL(key string) string
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds the stable path for an upload: <org>/<kind>/<owner>/<id>-<sanitized file name>.
func ObjectKey(organizationID, kind, ownerID, id, fileName string) string {
	name := unsafeName.ReplaceAllString(path.Base(strings.TrimSpace(fileName)), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return path.Join(organizationID, kind, ownerID, id+"-"+name)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
