// Package pagination drives the cursor loop over a paginated source.
//
// The source returns one page per request together with an opaque
// continuation cursor. The paginator starts with the empty cursor, hands
// each returned cursor back to the source unchanged, and stops on the first
// page that carries no cursor at all.
//
// Example usage:
//
//	src, _ := client.New(client.DefaultConfig("hotspot-sync/1.0"))
//	p := pagination.New(src)
//	_, err := p.Walk(ctx, func(page *hotspot.Page) error {
//		return forwarder.WritePage(ctx, page)
//	})
//
// Pages are fetched strictly one after another. The first error from the
// source or from the page callback ends the walk; nothing is retried.
package pagination
