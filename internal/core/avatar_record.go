package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Metadata keys holding avatar information.
const (
	// AvatarMetaKey holds the JSON-encoded AvatarRecord.
	AvatarMetaKey = "local_avatar"
	// LegacyAvatarMetaKey holds an attachment id written by older avatar
	// plugins. It is migrated into AvatarMetaKey on first read.
	LegacyAvatarMetaKey = "user_avatar"
)

// SizeFull is the AvatarRecord key of the original upload.
const SizeFull = "full"

// AvatarRecord maps a size key ("full", "96", ...) to an image URL.
type AvatarRecord map[string]string

// Full returns the URL of the original image.
func (a AvatarRecord) Full() string {
	return a[SizeFull]
}

// Sized returns the URL stored for a pixel size.
func (a AvatarRecord) Sized(size int) (string, bool) {
	u, ok := a[strconv.Itoa(size)]
	return u, ok && u != ""
}

// SetSized records the URL for a pixel size.
func (a AvatarRecord) SetSized(size int, u string) {
	a[strconv.Itoa(size)] = u
}

// URLs returns every stored URL with duplicates removed, in key order.
func (a AvatarRecord) URLs() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a))
	for _, k := range keys {
		u := a[k]
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// LoadAvatarRecord reads a user's avatar record. A user without one gets a
// nil record and no error.
func LoadAvatarRecord(ctx context.Context, meta MetaStore, userID int64) (AvatarRecord, error) {
	raw, err := meta.GetMeta(ctx, userID, AvatarMetaKey)
	if err != nil {
		return nil, fmt.Errorf("load avatar record: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var rec AvatarRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode avatar record: %w", err)
	}
	if rec.Full() == "" {
		return nil, nil
	}
	return rec, nil
}

// SaveAvatarRecord replaces a user's avatar record.
func SaveAvatarRecord(ctx context.Context, meta MetaStore, userID int64, rec AvatarRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode avatar record: %w", err)
	}
	if err := meta.SetMeta(ctx, userID, AvatarMetaKey, string(data)); err != nil {
		return fmt.Errorf("save avatar record: %w", err)
	}
	return nil
}
