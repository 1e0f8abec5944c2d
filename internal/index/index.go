// Package index is the content-addressed index of completed transcriptions.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/mfenderov/pageocr/pkg/models"
)

// ErrExists is returned by Put when the digest already has an Entry.
var ErrExists = errors.New("entry already exists")

// urlLink maps a URL to the digest last fetched from it.
type urlLink struct {
	URL    string
	Digest string
}

// Index maps digests to entries and URLs to digests. Every mutation is a
// single Badger transaction.
type Index struct {
	store *badgerhold.Store
	now   func() time.Time
}

// Open opens (or creates) the index at path.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	slog.Debug("index opened", "path", path)
	return &Index{store: store, now: time.Now}, nil
}

// Close closes the underlying store.
func (x *Index) Close() error {
	return x.store.Close()
}

// Lookup returns the Entry for d, or nil when there is none.
func (x *Index) Lookup(ctx context.Context, d models.Digest) (*models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var e models.Entry
	if err := x.store.Get(string(d), &e); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return &e, nil
}

// Put stores a new Entry and links its source URL. It never overwrites an
// existing digest and returns ErrExists instead.
func (x *Index) Put(ctx context.Context, e *models.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Digest == "" {
		return errors.New("entry digest is required")
	}
	now := x.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}

	err := x.store.Badger().Update(func(tx *badger.Txn) error {
		if err := x.store.TxInsert(tx, string(e.Digest), e); err != nil {
			return err
		}
		if e.SourceURL == "" {
			return nil
		}
		return x.store.TxUpsert(tx, e.SourceURL, &urlLink{URL: e.SourceURL, Digest: string(e.Digest)})
	})
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("failed to put entry: %w", err)
	}
	return nil
}

// Touch records that url served content d. When d has an Entry its
// UpdatedAt and SourceURL are refreshed.
func (x *Index) Touch(ctx context.Context, url string, d models.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := x.store.Badger().Update(func(tx *badger.Txn) error {
		if url != "" {
			if err := x.store.TxUpsert(tx, url, &urlLink{URL: url, Digest: string(d)}); err != nil {
				return err
			}
		}

		var e models.Entry
		if err := x.store.TxGet(tx, string(d), &e); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return nil
			}
			return err
		}
		e.UpdatedAt = x.now()
		if url != "" {
			e.SourceURL = url
		}
		return x.store.TxUpdate(tx, string(d), &e)
	})
	if err != nil {
		return fmt.Errorf("failed to touch entry: %w", err)
	}
	return nil
}

// Remove deletes the Entry for d and every URL link pointing at it.
// Removing an unknown digest is not an error.
func (x *Index) Remove(ctx context.Context, d models.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := x.store.Badger().Update(func(tx *badger.Txn) error {
		if err := x.store.TxDelete(tx, string(d), &models.Entry{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}
		return x.store.TxDeleteMatching(tx, &urlLink{}, badgerhold.Where("Digest").Eq(string(d)))
	})
	if err != nil {
		return fmt.Errorf("failed to remove entry: %w", err)
	}
	slog.Debug("entry removed", "digest", d.Short())
	return nil
}

// DigestForURL returns the digest last seen at url.
func (x *Index) DigestForURL(ctx context.Context, url string) (models.Digest, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var link urlLink
	if err := x.store.Get(url, &link); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get url link: %w", err)
	}
	return models.Digest(link.Digest), true, nil
}

// EntryForURL returns the Entry for the digest last seen at url, if both exist.
func (x *Index) EntryForURL(ctx context.Context, url string) (*models.Entry, error) {
	d, ok, err := x.DigestForURL(ctx, url)
	if err != nil || !ok {
		return nil, err
	}
	return x.Lookup(ctx, d)
}

// List returns all entries, most recently updated first.
func (x *Index) List(ctx context.Context) ([]models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entries []models.Entry
	if err := x.store.Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}
