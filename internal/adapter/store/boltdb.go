package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"docsqa/internal/domain"
)

var (
	bucketMeta    = []byte("meta")
	bucketEntries = []byte("entries")
	keyMeta       = []byte("index_meta")
)

// writeIndexFile writes meta and entries into a fresh bbolt file beside
// location and renames it into place, so readers see the old or the new
// index and never a partial one.
func writeIndexFile(location string, meta domain.IndexMeta, entries []domain.IndexEntry) error {
	dir := filepath.Dir(location)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.db.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file in %s: %v", domain.ErrPersistence, dir, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	db, err := bbolt.Open(tmpPath, 0644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", domain.ErrPersistence, tmpPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		mb, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}
		eb, err := tx.CreateBucket(bucketEntries)
		if err != nil {
			return err
		}

		for i, entry := range entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := eb.Put(seqKey(uint64(i)), data); err != nil {
				return err
			}
		}

		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return mb.Put(keyMeta, data)
	})
	if closeErr := db.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, tmpPath, err)
	}

	if err := os.Rename(tmpPath, location); err != nil {
		return fmt.Errorf("%w: replace %s: %v", domain.ErrPersistence, location, err)
	}
	committed = true
	return nil
}

// readIndexFile opens location read-only and returns its meta and entries in
// insertion order.
func readIndexFile(location string) (domain.IndexMeta, []domain.IndexEntry, error) {
	var (
		meta    domain.IndexMeta
		entries []domain.IndexEntry
	)

	info, err := os.Stat(location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return meta, nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, location)
		}
		return meta, nil, fmt.Errorf("%w: stat %s: %v", domain.ErrPersistence, location, err)
	}
	if info.IsDir() {
		return meta, nil, fmt.Errorf("%w: %s is a directory", domain.ErrIndexNotFound, location)
	}

	db, err := bbolt.Open(location, 0444, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return meta, nil, fmt.Errorf("%w: open %s: %v", domain.ErrPersistence, location, err)
		}
		return meta, nil, fmt.Errorf("%w: %s is not an index: %v", domain.ErrIndexNotFound, location, err)
	}
	defer db.Close()

	err = db.View(func(tx *bbolt.Tx) error {
		mb := tx.Bucket(bucketMeta)
		eb := tx.Bucket(bucketEntries)
		if mb == nil || eb == nil {
			return fmt.Errorf("%w: %s has no index buckets", domain.ErrIndexNotFound, location)
		}

		data := mb.Get(keyMeta)
		if data == nil {
			return fmt.Errorf("%w: %s has no index metadata", domain.ErrIndexNotFound, location)
		}
		if err := json.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("%w: %s has unreadable metadata: %v", domain.ErrIndexNotFound, location, err)
		}
		if meta.SchemaVersion != CurrentSchemaVersion {
			return fmt.Errorf("%w: %s has schema v%d, want v%d", domain.ErrIndexNotFound, location, meta.SchemaVersion, CurrentSchemaVersion)
		}

		entries = make([]domain.IndexEntry, 0, meta.EntryCount)
		return eb.ForEach(func(k, v []byte) error {
			var entry domain.IndexEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("%w: corrupted entry %x: %v", domain.ErrPersistence, k, err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return domain.IndexMeta{}, nil, err
	}

	if len(entries) != meta.EntryCount {
		return domain.IndexMeta{}, nil, fmt.Errorf("%w: %s holds %d entries, metadata records %d",
			domain.ErrPersistence, location, len(entries), meta.EntryCount)
	}
	return meta, entries, nil
}

// seqKey encodes an insertion sequence so bbolt's byte order matches it.
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
