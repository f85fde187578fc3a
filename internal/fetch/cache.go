package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/example/SubConverter/internal/fsutil"
)

const (
	urlFile  = "url"
	blobFile = "orig"
)

var ErrNoCache = errors.New("no cached subscription")

// Cache keeps the last subscription URL and its raw blob on disk.
type Cache struct {
	Dir string
}

func (c *Cache) Load() (rawurl string, blob []byte, err error) {
	blob, err = os.ReadFile(filepath.Join(c.Dir, blobFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, ErrNoCache
		}
		return "", nil, err
	}
	u, err := os.ReadFile(filepath.Join(c.Dir, urlFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", nil, err
	}
	return strings.TrimSpace(string(u)), blob, nil
}

func (c *Cache) Store(rawurl string, blob []byte) error {
	if err := fsutil.WriteFileAtomic(filepath.Join(c.Dir, urlFile), []byte(rawurl+"\n")); err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(filepath.Join(c.Dir, blobFile), blob)
}

type Fetcher interface {
	Fetch(ctx context.Context, rawurl string) ([]byte, error)
}

// Validator rejects a fetched body that is not a usable subscription.
type Validator func(blob []byte) error

// Resolve returns the raw blob for rawurl. Offline mode reads the cache
// only. Otherwise the blob is fetched and, once valid passes, cached; when
// the fetch fails or the body is rejected the cached blob for the same URL
// is used instead. An empty rawurl falls back to whatever URL the cache
// recorded. A nil valid accepts every body.
func Resolve(ctx context.Context, f Fetcher, cache *Cache, rawurl string, offline bool, valid Validator) (string, error) {
	cachedURL, cachedBlob, cacheErr := cache.Load()
	if cacheErr != nil && !errors.Is(cacheErr, ErrNoCache) {
		logrus.Warnln("[Cache] read failed:", cacheErr)
	}
	if rawurl == "" {
		rawurl = cachedURL
	}

	if offline {
		if cacheErr != nil {
			return "", fmt.Errorf("offline: %w", cacheErr)
		}
		if rawurl != cachedURL {
			logrus.Warnf("[Cache] cached blob belongs to %q, not %q", cachedURL, rawurl)
		}
		return string(cachedBlob), nil
	}

	if rawurl == "" {
		return "", errors.New("no subscription url configured and none cached")
	}

	blob, err := f.Fetch(ctx, rawurl)
	if err == nil && valid != nil {
		if verr := valid(blob); verr != nil {
			err = fmt.Errorf("invalid subscription body: %w", verr)
		}
	}
	if err == nil {
		if storeErr := cache.Store(rawurl, blob); storeErr != nil {
			logrus.Warnln("[Cache] store failed:", storeErr)
		}
		return string(blob), nil
	}
	if cacheErr == nil && cachedURL == rawurl {
		logrus.Warnf("[Fetch] %s failed, using cached blob: %v", rawurl, err)
		return string(cachedBlob), nil
	}
	return "", fmt.Errorf("fetch %s: %w", rawurl, err)
}
