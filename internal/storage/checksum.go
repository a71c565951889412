package storage

import (
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/mcoot/xwsync/internal/model"
)

// Checksum returns the hex blake2b-256 digest of a serialized snapshot
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Seal stamps a record with the checksum of its data
func Seal(rec *model.GameRecord) {
	rec.Checksum = Checksum(rec.Data)
}

// Verify checks a loaded record against its stored checksum
func Verify(rec *model.GameRecord) error {
	if got := Checksum(rec.Data); got != rec.Checksum {
		return fmt.Errorf("game %s: %w", rec.ID, model.ErrSnapshotCorrupt)
	}
	return nil
}

// SortRecords orders records newest first
func SortRecords(recs []*model.GameRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].UpdatedAt.Equal(recs[j].UpdatedAt) {
			return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}
