package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	pagesBucket = []byte("pages")
	typesBucket = []byte("content_types")
)

// Fetcher is the network side of the cache.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, string, time.Duration, error)
}

// Page is raw HTML as stored in, or freshly written to, the cache.
type Page struct {
	HTML        []byte
	ContentType string
	Cached      bool
}

// Cache keeps one raw HTML page per site identifier so repeated runs do not
// refetch every site.
type Cache struct {
	db      *bolt.DB
	fetcher Fetcher
}

func OpenCache(path string, f Fetcher) (*Cache, error) {
	if path == "" {
		return nil, errors.New("cache: missing path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{pagesBucket, typesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db, fetcher: f}, nil
}

func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached page for key, fetching and storing siteURL when
// nothing is cached or refresh is set.
func (c *Cache) Get(ctx context.Context, siteURL, key string, refresh bool) (Page, error) {
	if !refresh {
		if p, ok, err := c.lookup(key); err != nil || ok {
			return p, err
		}
	}
	if c.fetcher == nil {
		return Page{}, fmt.Errorf("cache: %s not cached and no fetcher configured", key)
	}

	p, err := fetchPage(ctx, c.fetcher, siteURL)
	if err != nil {
		return Page{}, err
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(pagesBucket).Put([]byte(key), p.HTML); err != nil {
			return err
		}
		return tx.Bucket(typesBucket).Put([]byte(key), []byte(p.ContentType))
	})
	if err != nil {
		return Page{}, fmt.Errorf("cache: store %s: %w", key, err)
	}
	return p, nil
}

// Live serves every request straight from the network.
type Live struct {
	Fetcher Fetcher
}

func (l Live) Get(ctx context.Context, siteURL, _ string, _ bool) (Page, error) {
	return fetchPage(ctx, l.Fetcher, siteURL)
}

func fetchPage(ctx context.Context, f Fetcher, siteURL string) (Page, error) {
	body, _, ct, _, err := f.Fetch(ctx, siteURL)
	if err != nil {
		return Page{}, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return Page{}, err
	}
	return Page{HTML: data, ContentType: ct}, nil
}

func (c *Cache) lookup(key string) (Page, bool, error) {
	var p Page
	var ok bool
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(pagesBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		ok = true
		// bolt values are only valid inside the transaction
		p.HTML = append([]byte{}, v...)
		p.ContentType = string(tx.Bucket(typesBucket).Get([]byte(key)))
		p.Cached = true
		return nil
	})
	return p, ok, err
}
