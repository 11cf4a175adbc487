package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tombee/odoo-mcp-bridge/internal/tools"
)

// MaxSubscriptionsPerClient is the specification's per-client cap.
const MaxSubscriptionsPerClient = 50

// DefaultPollInterval is how often a subscription checks write_date absent
// an operator override.
const DefaultPollInterval = 60 * time.Second

// UpdateNotifier is called when a subscribed resource's write_date moves,
// mirroring the MCP resources/updated notification the transport sends.
type UpdateNotifier func(clientID string, uri string)

type subscription struct {
	uri        *URI
	lastWrite  string
	cancel     context.CancelFunc
}

// TooManySubscriptionsError is returned when a client is already at the cap.
type TooManySubscriptionsError struct{ ClientID string }

func (e *TooManySubscriptionsError) Error() string {
	return fmt.Sprintf("client %s already holds %d subscriptions, the maximum allowed", e.ClientID, MaxSubscriptionsPerClient)
}

// UnsubscribableError reports a resource category that cannot be
// subscribed to — only individual records and system/info support it.
type UnsubscribableError struct{ URI string }

func (e *UnsubscribableError) Error() string {
	return fmt.Sprintf("resource %s does not support subscriptions", e.URI)
}

// SubscriptionManager owns per-client subscription state and the polling
// goroutines that back it, entirely independent of tool invocations but
// sharing the same Engine (and therefore the same connection and
// reconnection barrier) to read write_date.
type SubscriptionManager struct {
	mu       sync.Mutex
	engine   *Engine
	notify   UpdateNotifier
	interval time.Duration
	subs     map[string]map[string]*subscription // clientID -> uri -> subscription
}

// NewSubscriptionManager wires a manager against an Engine, using
// DefaultPollInterval unless interval is positive.
func NewSubscriptionManager(engine *Engine, notify UpdateNotifier, interval time.Duration) *SubscriptionManager {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &SubscriptionManager{engine: engine, notify: notify, interval: interval, subs: map[string]map[string]*subscription{}}
}

func subscribable(uri *URI) bool {
	if uri.Category == CategorySystem && len(uri.Segments) == 1 && uri.Segments[0] == "info" {
		return true
	}
	return uri.Category == CategoryRecord && len(uri.Segments) == 2
}

// Subscribe registers a poller for the given resource on behalf of a
// client, enforcing the per-client cap and the subscribable-category rule.
func (m *SubscriptionManager) Subscribe(ctx context.Context, sess tools.Session, clientID string, uri *URI) error {
	if !subscribable(uri) {
		return &UnsubscribableError{URI: uri.Raw}
	}

	m.mu.Lock()
	client, ok := m.subs[clientID]
	if !ok {
		client = map[string]*subscription{}
		m.subs[clientID] = client
	}
	if _, exists := client[uri.Raw]; exists {
		m.mu.Unlock()
		return nil
	}
	if len(client) >= MaxSubscriptionsPerClient {
		m.mu.Unlock()
		return &TooManySubscriptionsError{ClientID: clientID}
	}

	pollCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{uri: uri, cancel: cancel}
	client[uri.Raw] = sub
	m.mu.Unlock()

	go m.poll(pollCtx, sess, clientID, sub)
	return nil
}

// Unsubscribe stops a client's poller for one resource.
func (m *SubscriptionManager) Unsubscribe(clientID, uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	client, ok := m.subs[clientID]
	if !ok {
		return
	}
	if sub, ok := client[uri]; ok {
		sub.cancel()
		delete(client, uri)
	}
}

// UnsubscribeAll releases every subscription a disconnecting client held.
func (m *SubscriptionManager) UnsubscribeAll(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs[clientID] {
		sub.cancel()
	}
	delete(m.subs, clientID)
}

// Count returns how many subscriptions a client currently holds.
func (m *SubscriptionManager) Count(clientID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[clientID])
}

func (m *SubscriptionManager) poll(ctx context.Context, sess tools.Session, clientID string, sub *subscription) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkOnce(ctx, sess, clientID, sub)
		}
	}
}

func (m *SubscriptionManager) checkOnce(ctx context.Context, sess tools.Session, clientID string, sub *subscription) {
	writeDate, err := m.currentWriteDate(ctx, sess, sub.uri)
	if err != nil {
		return
	}

	m.mu.Lock()
	changed := sub.lastWrite != "" && sub.lastWrite != writeDate
	sub.lastWrite = writeDate
	m.mu.Unlock()

	if changed && m.notify != nil {
		m.notify(clientID, sub.uri.Raw)
	}
}

func (m *SubscriptionManager) currentWriteDate(ctx context.Context, sess tools.Session, uri *URI) (string, error) {
	if uri.Category == CategorySystem {
		info, err := m.engine.Read(ctx, sess, uri)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%v", info), nil
	}

	model, idStr := uri.Segments[0], uri.Segments[1]
	id, err := parseID(idStr)
	if err != nil {
		return "", err
	}
	res, tErr := m.engine.tools.Read(ctx, sess, tools.ReadRequest{Model: model, IDs: []int{id}, Fields: []string{"write_date"}})
	if tErr != nil {
		return "", tErr
	}
	if len(res.Records) == 0 {
		return "", fmt.Errorf("record %d on %s no longer exists", id, model)
	}
	wd, _ := res.Records[0]["write_date"].(string)
	return wd, nil
}

func parseID(s string) (int, error) {
	var id int
	_, err := fmt.Sscanf(s, "%d", &id)
	return id, err
}
