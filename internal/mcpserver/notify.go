package mcpserver

// notificationResourceUpdated is the JSON-RPC method name the MCP
// specification uses to tell a subscribed client that a resource it holds
// changed.
const notificationResourceUpdated = "notifications/resources/updated"

// Notifier returns a resource.UpdateNotifier that pushes a
// notifications/resources/updated message to the client owning clientID.
// mark3labs addresses a specific session by first looking it up and
// re-entering its context; since this bridge currently only serves stdio
// (a single implicit session), broadcasting to all clients is equivalent
// and avoids depending on a session registry the transport doesn't expose
// for stdio.
func (h *Host) Notifier() func(clientID, uri string) {
	return func(clientID, uri string) {
		h.srv.SendNotificationToAllClients(notificationResourceUpdated, map[string]interface{}{
			"uri": uri,
		})
	}
}
