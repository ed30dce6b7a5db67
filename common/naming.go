package common

import (
	"fmt"
	"path"
	"strings"
)

// ObjectURL returns the address of a key in a bucket (e.g. s3://bucket/key)
func ObjectURL(scheme, bucket, key string) string {
	return fmt.Sprintf("%s://%s/%s", scheme, bucket, strings.TrimLeft(key, "/"))
}

func splitScheme(rawurl string) (scheme, rest string, ok bool) {
	i := strings.Index(rawurl, "://")
	if i <= 0 {
		return "", rawurl, false
	}
	return rawurl[:i], rawurl[i+len("://"):], true
}

// ParseObjectURL splits an object address into scheme, bucket and key.
// The key is returned verbatim: object keys are not url-escaped.
func ParseObjectURL(rawurl string) (scheme, bucket, key string, err error) {
	scheme, rest, ok := splitScheme(rawurl)
	if ok {
		bucket, key, _ = strings.Cut(rest, "/")
	}
	if scheme == "" || bucket == "" {
		return "", "", "", fmt.Errorf("ParseObjectURL: %s must be formatted as scheme://bucket/key", rawurl)
	}
	return scheme, bucket, strings.TrimLeft(key, "/"), nil
}

// filePath returns the path of the file: the key of an object url, or the path of an http(s) url without query.
// Nothing is unescaped, so that distinct keys keep distinct paths.
func filePath(fileurl string) string {
	scheme, rest, ok := splitScheme(fileurl)
	if !ok {
		return fileurl
	}
	switch strings.ToLower(scheme) {
	case "http", "https":
		if i := strings.IndexAny(rest, "?#"); i >= 0 {
			rest = rest[:i]
		}
	}
	_, p, _ := strings.Cut(rest, "/")
	return "/" + p
}

// FileStem returns the name of the file, without directory nor extension
// (e.g. s3://bucket/dir/name.he5.tif => name.he5)
func FileStem(fileurl string) string {
	base := path.Base(filePath(fileurl))
	if base == "/" || base == "." {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// FileExt returns the extension of the file without the leading dot
func FileExt(fileurl string) string {
	return strings.TrimPrefix(path.Ext(path.Base(filePath(fileurl))), ".")
}

func trimRightSlashes(s string) string {
	return strings.TrimRight(s, "/")
}
