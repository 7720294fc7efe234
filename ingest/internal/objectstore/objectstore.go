// Package objectstore is the blob store boundary: model documents live at
// {data-folder}/{name}.json in either the site or the staging bucket.
package objectstore

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by Get and Tags for a missing key.
	ErrNotFound = errors.New("object not found")
	// ErrPreconditionFailed is returned by Put with IfAbsent when the key exists.
	ErrPreconditionFailed = errors.New("object already exists")
)

// ObjectInfo is one listing entry.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// Object is a fetched document.
type Object struct {
	ObjectInfo
	Body []byte
}

// PutOptions controls a write.
type PutOptions struct {
	// Tags is an encoded tag string; empty writes no tags.
	Tags string
	// IfAbsent makes the write fail with ErrPreconditionFailed when the key exists.
	IfAbsent    bool
	ContentType string
}

// Store is implemented by S3 and Memory.
type Store interface {
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	Get(ctx context.Context, bucket, key string) (*Object, error)
	Tags(ctx context.Context, bucket, key string) (map[string]string, error)
	Put(ctx context.Context, bucket, key string, body []byte, opts PutOptions) error
}

// ModelKey is the object key of a model document.
func ModelKey(folder, name string) string {
	return FolderPrefix(folder) + name + ".json"
}

// FolderPrefix is the listing prefix of a data folder.
func FolderPrefix(folder string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}

// ModelName recovers the model name from a key, or "" for keys that are not
// model documents (the folder placeholder, non-JSON files).
func ModelName(key string) string {
	base := path.Base(key)
	if strings.HasSuffix(key, "/") || !strings.HasSuffix(strings.ToLower(base), ".json") {
		return ""
	}
	return base[:len(base)-len(".json")]
}
