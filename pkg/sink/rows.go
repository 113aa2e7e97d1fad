package sink

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
)

// HotspotColumns are the scalar hotspot columns in insert order. Status is
// never persisted by the relational sinks.
var HotspotColumns = []string{
	"address", "lng", "lat", "timestamp_added", "reward_scale", "payer",
	"owner", "nonce", "name", "mode", "location_hex", "location",
	"last_poc_challenge", "last_change_block", "gain", "elevation",
	"block_added", "block",
}

// GeocodeColumns are the columns of the optional geocode table.
var GeocodeColumns = []string{
	"address", "short_street", "short_state", "short_country", "short_city",
	"long_street", "long_state", "long_country", "long_city", "city_id",
}

// HotspotArgs returns h's values in HotspotColumns order. Nil pointers bind as NULL.
func HotspotArgs(h *hotspot.Hotspot) []any {
	return []any{
		h.Address, h.Lng, h.Lat, h.TimestampAdded, h.RewardScale, h.Payer,
		h.Owner, h.Nonce, h.Name, h.Mode, h.LocationHex, h.Location,
		h.LastPocChallenge, h.LastChangeBlock, h.Gain, h.Elevation,
		h.BlockAdded, h.Block,
	}
}

// GeocodeArgs returns h's geocode values in GeocodeColumns order.
func GeocodeArgs(h *hotspot.Hotspot) []any {
	g := h.Geocode
	return []any{
		h.Address, g.ShortStreet, g.ShortState, g.ShortCountry, g.ShortCity,
		g.LongStreet, g.LongState, g.LongCountry, g.LongCity, g.CityID,
	}
}

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Dollar renders Postgres style "$n" parameters.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Question renders "?" parameters.
func Question(int) string { return "?" }

// InsertSQL builds "INSERT <verb> INTO table (cols) VALUES (...) <suffix>".
func InsertSQL(verb, table string, columns []string, ph Placeholder, suffix string) string {
	params := make([]string, len(columns))
	for i := range columns {
		params[i] = ph(i + 1)
	}

	var b strings.Builder
	b.WriteString("INSERT ")
	if verb != "" {
		b.WriteString(verb)
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(params, ", "))
	if suffix != "" {
		b.WriteString(" ")
		b.WriteString(suffix)
	}
	return b.String()
}
