package broadcast

// Channel names pushed to connected clients. Payloads are the full current
// collection or entity, not deltas; a client that connects later has to do
// an initial fetch over HTTP to catch up.
const (
	ChannelCartUpdate     = "cart:update"
	ChannelWishlistUpdate = "wishlist:update"
	ChannelProductCreated = "product:created"
	ChannelProductUpdated = "product:updated"
	ChannelProductDeleted = "product:deleted"
)

// Broadcaster is injected into every handler that mutates shared state so
// the hub can be replaced with a fake in tests. Publish is fire-and-forget:
// no delivery confirmation, no retry, no persistence.
type Broadcaster interface {
	Publish(channel string, payload interface{})
}

// Envelope is the wire format sent to every connected client.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}
