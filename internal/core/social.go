package core

import (
	"context"
	"fmt"
)

// SocialNetwork names a profile link stored as user metadata. The metadata
// key is the network name; the CSV column is "user_" + name.
type SocialNetwork string

const (
	Facebook  SocialNetwork = "facebook"
	VKontakte SocialNetwork = "vkontakte"
	Twitter   SocialNetwork = "twitter"
	Telegram  SocialNetwork = "telegram"
	YouTube   SocialNetwork = "youtube"
	Instagram SocialNetwork = "instagram"
	TikTok    SocialNetwork = "tiktok"
	LinkedIn  SocialNetwork = "linkedin"
	Pinterest SocialNetwork = "pinterest"
)

// SocialNetworks lists every supported network in merge order.
var SocialNetworks = []SocialNetwork{
	Facebook, VKontakte, Twitter, Telegram, YouTube,
	Instagram, TikTok, LinkedIn, Pinterest,
}

// Column returns the CSV header name for the network.
func (n SocialNetwork) Column() string {
	return "user_" + string(n)
}

// MetaKey returns the user metadata key for the network.
func (n SocialNetwork) MetaKey() string {
	return string(n)
}

// mergeSocial writes the record's non-empty social links to user metadata
// and reports whether any key was written. With onlyIfEmpty, keys that
// already hold a value are left alone.
func mergeSocial(ctx context.Context, meta MetaStore, userID int64, rec Record, onlyIfEmpty bool) (bool, error) {
	written := false
	for _, n := range SocialNetworks {
		v := rec.Social[n]
		if v == "" {
			continue
		}
		if onlyIfEmpty {
			current, err := meta.GetMeta(ctx, userID, n.MetaKey())
			if err != nil {
				return written, fmt.Errorf("read %s: %w", n, err)
			}
			if current != "" {
				continue
			}
		}
		if err := meta.SetMeta(ctx, userID, n.MetaKey(), SanitizeURL(v)); err != nil {
			return written, fmt.Errorf("write %s: %w", n, err)
		}
		written = true
	}
	return written, nil
}
