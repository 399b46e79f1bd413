// Package storage keeps uploaded files in an S3-compatible object store and
// hands out short-lived signed URLs for them. Rows only ever store
// storage://bucket/path references, never public URLs.
package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Scheme prefixes every stored file reference.
const Scheme = "storage://"

// ErrInvalidRef is returned for references that are not storage://bucket/path.
var ErrInvalidRef = errors.New("invalid storage reference")

// Ref identifies one stored object.
type Ref struct {
	Bucket string
	Path   string
}

// String formats the reference as storage://bucket/path.
func (r Ref) String() string {
	return Scheme + r.Bucket + "/" + r.Path
}

// ParseRef parses a storage://bucket/path reference.
func ParseRef(raw string) (Ref, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), Scheme)
	if !ok {
		return Ref{}, fmt.Errorf("%w: %q lacks %s scheme", ErrInvalidRef, raw, Scheme)
	}
	bucket, path, _ := strings.Cut(rest, "/")
	path = strings.TrimLeft(path, "/")
	if bucket == "" || path == "" {
		return Ref{}, fmt.Errorf("%w: %q needs a bucket and a path", ErrInvalidRef, raw)
	}
	return Ref{Bucket: bucket, Path: path}, nil
}
