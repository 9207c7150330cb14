package upload

import (
	"errors"
	"fmt"
	"strings"
)

// Rarity grades a card from common to legendary.
type Rarity string

// Supported rarity grades.
const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// ErrInvalidRarity is returned by ParseRarity for unknown grades.
var ErrInvalidRarity = errors.New("invalid rarity")

// ParseRarity converts s (case-insensitive) to a Rarity.
func ParseRarity(s string) (Rarity, error) {
	switch Rarity(strings.ToLower(strings.TrimSpace(s))) {
	case RarityCommon:
		return RarityCommon, nil
	case RarityUncommon:
		return RarityUncommon, nil
	case RarityRare:
		return RarityRare, nil
	case RarityEpic:
		return RarityEpic, nil
	case RarityLegendary:
		return RarityLegendary, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRarity, s)
	}
}

// String returns the rarity as its wire value.
func (r Rarity) String() string { return string(r) }

// Blob is the binary payload of an item together with the name and MIME type
// it is transmitted under.
type Blob struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Item is one card queued for upload. Items are created by the caller before
// a session starts and are immutable for the life of the session. IDs must be
// unique within one Session.Start call.
type Item struct {
	ID       string
	Blob     Blob
	Name     string
	Series   string
	Rarity   Rarity
	Explicit bool
}

// Filename returns the name the item's blob travels under; classification
// matches server-side errors back to items by this name.
func (it Item) Filename() string { return it.Blob.Filename }

// Metadata is the per-item descriptor sent alongside the blob, index-aligned
// with the file parts of the multipart payload.
type Metadata struct {
	Name     string `json:"name"`
	Series   string `json:"series"`
	Rarity   string `json:"rarity"`
	Explicit bool   `json:"explicitFlag"`
}

// Metadata returns the wire descriptor for the item.
func (it Item) Metadata() Metadata {
	return Metadata{
		Name:     it.Name,
		Series:   it.Series,
		Rarity:   it.Rarity.String(),
		Explicit: it.Explicit,
	}
}
