// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package license validates license keys, maps a license tier to its
// feature table and enforces the daily and monthly article ceilings.
package license

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

// Tier is the license edition encoded in the key.
type Tier string

const (
	TierLite Tier = "LITE"
	TierPro  Tier = "PRO"
	TierEnt  Tier = "ENT"
)

// Feature names a boolean capability gated by the tier.
type Feature string

const (
	FeatureAutoSchedule    Feature = "hasAutoSchedule"
	FeatureImageGeneration Feature = "hasImageGeneration"
	FeatureDMMAPI          Feature = "hasDmmApi"
)

// ErrInvalidFormat is returned by Parse for keys that do not match
// BAS-<TIER>-XXXX-XXXX.
var ErrInvalidFormat = errors.New("無効なライセンスキー形式です")

var keyPattern = regexp.MustCompile(`^BAS-(LITE|PRO|ENT)-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// Features is the per-tier limit table.
type Features struct {
	MaxSites            int  `json:"maxSites"`
	MaxArticlesPerDay   int  `json:"maxArticlesPerDay"`
	MaxArticlesPerMonth int  `json:"maxArticlesPerMonth"`
	HasAutoSchedule     bool `json:"hasAutoSchedule"`
	HasImageGeneration  bool `json:"hasImageGeneration"`
	HasDMMAPI           bool `json:"hasDmmApi"`
	SupportDays         int  `json:"supportDays"`
}

var featureTable = map[Tier]Features{
	TierLite: {
		MaxSites:            1,
		MaxArticlesPerDay:   10,
		MaxArticlesPerMonth: 300,
		SupportDays:         30,
	},
	TierPro: {
		MaxSites:            5,
		MaxArticlesPerDay:   50,
		MaxArticlesPerMonth: 1500,
		HasAutoSchedule:     true,
		HasImageGeneration:  true,
		HasDMMAPI:           true,
		SupportDays:         90,
	},
	TierEnt: {
		MaxSites:            999,
		MaxArticlesPerDay:   999,
		MaxArticlesPerMonth: 99999,
		HasAutoSchedule:     true,
		HasImageGeneration:  true,
		HasDMMAPI:           true,
		SupportDays:         365,
	},
}

// FeaturesFor returns the feature table of t. Unknown tiers get LITE.
func FeaturesFor(t Tier) Features {
	if f, ok := featureTable[t]; ok {
		return f
	}
	return featureTable[TierLite]
}

// Status is the outcome of a successful license validation.
type Status struct {
	Valid    bool     `json:"valid"`
	Type     Tier     `json:"type"`
	Email    string   `json:"email"`
	Features Features `json:"features"`
	Checksum string   `json:"-"`
}

// Has reports whether the status grants feature f.
func (s Status) Has(f Feature) bool {
	if !s.Valid {
		return false
	}
	switch f {
	case FeatureAutoSchedule:
		return s.Features.HasAutoSchedule
	case FeatureImageGeneration:
		return s.Features.HasImageGeneration
	case FeatureDMMAPI:
		return s.Features.HasDMMAPI
	}
	return false
}

// Parse validates the key format and derives the tier. The checksum is
// the first four hex digits of md5(email+key), upper-cased.
func Parse(key, email string) (Status, error) {
	if !keyPattern.MatchString(key) {
		return Status{}, ErrInvalidFormat
	}
	tier := Tier(strings.Split(key, "-")[1])
	sum := md5.Sum([]byte(email + key))

	return Status{
		Valid:    true,
		Type:     tier,
		Email:    email,
		Features: FeaturesFor(tier),
		Checksum: strings.ToUpper(hex.EncodeToString(sum[:])[:4]),
	}, nil
}

// Mask hides the third key group: BAS-PRO-****-WXYZ.
func Mask(key string) string {
	if key == "" {
		return "NOT SET"
	}
	parts := strings.Split(key, "-")
	if len(parts) < 4 {
		return "INVALID"
	}
	return parts[0] + "-" + parts[1] + "-****-" + parts[3]
}
