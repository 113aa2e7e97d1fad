package testutil

import "fmt"

// HotspotJSON renders a hotspot with only its required fields set.
func HotspotJSON(address string) string {
	return fmt.Sprintf(`{"address": %q, "nonce": 0, "last_change_block": 10, "gain": 1, "elevation": 2, "block_added": 100, "block": 101, "geocode": {"short_street": null, "short_state": null, "short_country": null, "short_city": null, "long_street": null, "long_state": null, "long_country": null, "long_city": null, "city_id": null}}`, address)
}

// PageJSON renders a page of minimal hotspots. An empty next omits the cursor.
func PageJSON(next string, addresses ...string) string {
	data := "["
	for i, a := range addresses {
		if i > 0 {
			data += ","
		}
		data += HotspotJSON(a)
	}
	data += "]"

	if next == "" {
		return fmt.Sprintf(`{"data": %s}`, data)
	}
	return fmt.Sprintf(`{"data": %s, "cursor": %q}`, data, next)
}

// ChainPages configures src to serve one page per element of pages, chained
// by cursors "c1", "c2", ... The last page carries no cursor.
func ChainPages(src *MockSource, pages ...[]string) {
	cursor := ""
	for i, addrs := range pages {
		next := ""
		if i < len(pages)-1 {
			next = fmt.Sprintf("c%d", i+1)
		}
		src.SetPage(cursor, PageJSON(next, addrs...))
		cursor = next
	}
}
