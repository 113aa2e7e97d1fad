// Package hotspot defines the Hotspot record shape returned by the source API
// and the Page envelope it is delivered in.
package hotspot

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Page is one fetched unit of hotspots plus the continuation cursor.
// A nil Cursor means the source has no more pages.
type Page struct {
	Data   []Hotspot `json:"data"`
	Cursor *string   `json:"cursor"`
}

// HasNext reports whether the source returned a continuation cursor.
func (p *Page) HasNext() bool {
	return p.Cursor != nil
}

// Hotspot is a single record keyed by Address.
//
// Pointer fields are nullable and always serialize, as null when unset.
// Nonce, LastChangeBlock, Gain, Elevation, BlockAdded and Block are required
// on decode even when their value is zero.
type Hotspot struct {
	Lng              *float64 `json:"lng" bson:"lng"`
	Lat              *float64 `json:"lat" bson:"lat"`
	TimestampAdded   *string  `json:"timestamp_added" bson:"timestamp_added"`
	Status           *Status  `json:"status" bson:"status"`
	RewardScale      *float64 `json:"reward_scale" bson:"reward_scale"`
	Payer            *string  `json:"payer" bson:"payer"`
	Owner            *string  `json:"owner" bson:"owner"`
	Nonce            int64    `json:"nonce" bson:"nonce"`
	Name             *string  `json:"name" bson:"name"`
	Mode             *string  `json:"mode" bson:"mode"`
	LocationHex      *string  `json:"location_hex" bson:"location_hex"`
	Location         *string  `json:"location" bson:"location"`
	LastPocChallenge *int64   `json:"last_poc_challenge" bson:"last_poc_challenge"`
	LastChangeBlock  int64    `json:"last_change_block" bson:"last_change_block"`
	Geocode          Geocode  `json:"geocode" bson:"geocode"`
	Gain             int64    `json:"gain" bson:"gain"`
	Elevation        int64    `json:"elevation" bson:"elevation"`
	BlockAdded       int64    `json:"block_added" bson:"block_added"`
	Block            int64    `json:"block" bson:"block"`
	Address          string   `json:"address" bson:"address"`
}

// Status is the optional liveness block of a hotspot.
type Status struct {
	Timestamp   *string  `json:"timestamp" bson:"timestamp"`
	Online      *string  `json:"online" bson:"online"`
	ListenAddrs []string `json:"listen_addrs" bson:"listen_addrs"`
	Height      *int64   `json:"height" bson:"height"`
}

// Geocode is always present on a hotspot but every field may be null.
type Geocode struct {
	ShortStreet  *string `json:"short_street" bson:"short_street"`
	ShortState   *string `json:"short_state" bson:"short_state"`
	ShortCountry *string `json:"short_country" bson:"short_country"`
	ShortCity    *string `json:"short_city" bson:"short_city"`
	LongStreet   *string `json:"long_street" bson:"long_street"`
	LongState    *string `json:"long_state" bson:"long_state"`
	LongCountry  *string `json:"long_country" bson:"long_country"`
	LongCity     *string `json:"long_city" bson:"long_city"`
	CityID       *string `json:"city_id" bson:"city_id"`
}

// MissingFieldsError is returned when a hotspot object lacks required keys.
type MissingFieldsError struct {
	Fields []string
}

// Error implements the error interface.
func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("hotspot: missing required fields: %s", strings.Join(e.Fields, ", "))
}

// wireHotspot mirrors Hotspot with pointers for the required keys so that
// absence can be told apart from zero.
type wireHotspot struct {
	Lng              *float64 `json:"lng"`
	Lat              *float64 `json:"lat"`
	TimestampAdded   *string  `json:"timestamp_added"`
	Status           *Status  `json:"status"`
	RewardScale      *float64 `json:"reward_scale"`
	Payer            *string  `json:"payer"`
	Owner            *string  `json:"owner"`
	Nonce            *int64   `json:"nonce"`
	Name             *string  `json:"name"`
	Mode             *string  `json:"mode"`
	LocationHex      *string  `json:"location_hex"`
	Location         *string  `json:"location"`
	LastPocChallenge *int64   `json:"last_poc_challenge"`
	LastChangeBlock  *int64   `json:"last_change_block"`
	Geocode          *Geocode `json:"geocode"`
	Gain             *int64   `json:"gain"`
	Elevation        *int64   `json:"elevation"`
	BlockAdded       *int64   `json:"block_added"`
	Block            *int64   `json:"block"`
	Address          *string  `json:"address"`
}

// UnmarshalJSON decodes a hotspot and rejects objects whose required fields
// are absent or null.
func (h *Hotspot) UnmarshalJSON(data []byte) error {
	var w wireHotspot
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var missing []string
	if w.Address == nil {
		missing = append(missing, "address")
	}
	if w.Geocode == nil {
		missing = append(missing, "geocode")
	}
	required := []struct {
		name string
		v    *int64
	}{
		{"nonce", w.Nonce},
		{"last_change_block", w.LastChangeBlock},
		{"gain", w.Gain},
		{"elevation", w.Elevation},
		{"block_added", w.BlockAdded},
		{"block", w.Block},
	}
	for _, r := range required {
		if r.v == nil {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}

	*h = Hotspot{
		Lng:              w.Lng,
		Lat:              w.Lat,
		TimestampAdded:   w.TimestampAdded,
		Status:           w.Status,
		RewardScale:      w.RewardScale,
		Payer:            w.Payer,
		Owner:            w.Owner,
		Nonce:            *w.Nonce,
		Name:             w.Name,
		Mode:             w.Mode,
		LocationHex:      w.LocationHex,
		Location:         w.Location,
		LastPocChallenge: w.LastPocChallenge,
		LastChangeBlock:  *w.LastChangeBlock,
		Geocode:          *w.Geocode,
		Gain:             *w.Gain,
		Elevation:        *w.Elevation,
		BlockAdded:       *w.BlockAdded,
		Block:            *w.Block,
		Address:          *w.Address,
	}
	return nil
}

// UnmarshalJSON decodes a page; the data array is required, the cursor is not.
func (p *Page) UnmarshalJSON(data []byte) error {
	var w struct {
		Data   *[]Hotspot `json:"data"`
		Cursor *string    `json:"cursor"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Data == nil {
		return &MissingFieldsError{Fields: []string{"data"}}
	}
	p.Data = *w.Data
	p.Cursor = w.Cursor
	return nil
}

// Decode parses a page body. Unknown fields are ignored.
func Decode(data []byte) (*Page, error) {
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
