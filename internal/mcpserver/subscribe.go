package mcpserver

import (
	"context"

	"github.com/tombee/odoo-mcp-bridge/internal/resource"
)

// Subscribe registers a poller for a resource on behalf of clientID. mark3labs
// does not expose a confirmed hook for the resources/subscribe protocol
// message in this version of the library, so this is wired for a transport
// layer or session-lifecycle callback to call directly once that hook is
// identified; UnsubscribeAll should be called from the same place a session
// close is observed.
func (h *Host) Subscribe(ctx context.Context, clientID, rawURI string) error {
	uri, err := resource.ParseURI(rawURI)
	if err != nil {
		return err
	}
	sess := h.sessionFor(ctx)
	return h.subs.Subscribe(ctx, sess, clientID, uri)
}

// Unsubscribe stops a client's poller for one resource.
func (h *Host) Unsubscribe(clientID, rawURI string) {
	h.subs.Unsubscribe(clientID, rawURI)
}

// UnsubscribeAll releases every subscription a disconnecting client held.
func (h *Host) UnsubscribeAll(clientID string) {
	h.subs.UnsubscribeAll(clientID)
}
