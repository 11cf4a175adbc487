package resource

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/odoo-mcp-bridge/internal/tools"
)

func TestSubscribe_RejectsUnsubscribableCategory(t *testing.T) {
	engine := testEngine(&fakeBackend{}, "full", nil)
	m := NewSubscriptionManager(engine, nil, 10*time.Millisecond)
	u, _ := ParseURI("odoo://model/res.partner/fields")

	err := m.Subscribe(context.Background(), tools.Session{ID: "s1"}, "client1", u)
	require.Error(t, err)
	var unsub *UnsubscribableError
	assert.ErrorAs(t, err, &unsub)
}

func TestSubscribe_EnforcesPerClientCap(t *testing.T) {
	engine := testEngine(&fakeBackend{response: []interface{}{map[string]interface{}{"id": 1, "write_date": "2026-01-01 00:00:00"}}}, "full", nil)
	m := NewSubscriptionManager(engine, nil, time.Hour)

	for i := 0; i < MaxSubscriptionsPerClient; i++ {
		u, _ := ParseURI("odoo://record/res.partner/" + strconv.Itoa(i+1))
		require.NoError(t, m.Subscribe(context.Background(), tools.Session{ID: "s1"}, "client1", u))
	}
	assert.Equal(t, MaxSubscriptionsPerClient, m.Count("client1"))

	overflow, _ := ParseURI("odoo://record/res.partner/9999")
	err := m.Subscribe(context.Background(), tools.Session{ID: "s1"}, "client1", overflow)
	require.Error(t, err)
	var tooMany *TooManySubscriptionsError
	assert.ErrorAs(t, err, &tooMany)

	m.UnsubscribeAll("client1")
}

func TestSubscribe_NotifiesOnWriteDateChange(t *testing.T) {
	backend := &fakeBackend{response: []interface{}{map[string]interface{}{"id": 1, "write_date": "2026-01-01 00:00:00"}}}
	engine := testEngine(backend, "full", nil)

	var mu sync.Mutex
	notified := false
	m := NewSubscriptionManager(engine, func(clientID, uri string) {
		mu.Lock()
		notified = true
		mu.Unlock()
	}, 5*time.Millisecond)

	u, _ := ParseURI("odoo://record/res.partner/1")
	require.NoError(t, m.Subscribe(context.Background(), tools.Session{ID: "s1"}, "client1", u))

	time.Sleep(15 * time.Millisecond)
	backend.response = []interface{}{map[string]interface{}{"id": 1, "write_date": "2026-01-02 00:00:00"}}
	time.Sleep(20 * time.Millisecond)

	m.UnsubscribeAll("client1")

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, notified)
}
