package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIntrospector struct {
	installed map[string]bool
	readable  []string
	delay     time.Duration
	failOn    map[string]bool
	inFlight  int32
	maxInFlight int32
}

func (f *fakeIntrospector) InstalledModules(ctx context.Context) (map[string]bool, error) {
	return f.installed, nil
}

func (f *fakeIntrospector) ReadableModels(ctx context.Context, candidates []string) ([]string, error) {
	return f.readable, nil
}

func (f *fakeIntrospector) IntrospectModel(ctx context.Context, model string) (ModelInfo, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		old := atomic.LoadInt32(&f.maxInFlight)
		if n <= old || atomic.CompareAndSwapInt32(&f.maxInFlight, old, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ModelInfo{}, ctx.Err()
		}
	}
	if f.failOn[model] {
		return ModelInfo{}, errors.New("introspection failed")
	}
	return ModelInfo{Model: model, Name: model}, nil
}

func TestDynamic_RespectsConcurrencyLimit(t *testing.T) {
	models := []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8"}
	intro := &fakeIntrospector{readable: models, delay: 20 * time.Millisecond}

	results, err := Dynamic(context.Background(), intro, IntrospectConfig{MaxConcurrency: 3, Budget: 5 * time.Second}, nil)
	require.NoError(t, err)
	assert.Len(t, results, len(models))
	assert.LessOrEqual(t, int(intro.maxInFlight), 3)
}

func TestDynamic_SkipsFailedModelsWithWarning(t *testing.T) {
	intro := &fakeIntrospector{readable: []string{"good", "bad"}, failOn: map[string]bool{"bad": true}}
	results, err := Dynamic(context.Background(), intro, IntrospectConfig{}, nil)
	require.NoError(t, err)
	assert.Contains(t, results, "good")
	assert.NotContains(t, results, "bad")
}

func TestDynamic_BudgetExpiryKeepsPartialResults(t *testing.T) {
	models := []string{"m1", "m2", "m3", "m4", "m5"}
	intro := &fakeIntrospector{readable: models, delay: 100 * time.Millisecond}

	results, err := Dynamic(context.Background(), intro, IntrospectConfig{MaxConcurrency: 1, Budget: 150 * time.Millisecond}, nil)
	require.NoError(t, err)
	assert.Less(t, len(results), len(models))
}

func TestDefaultIntrospectionModels_ReturnsCopy(t *testing.T) {
	a := DefaultIntrospectionModels()
	a[0] = "mutated"
	b := DefaultIntrospectionModels()
	assert.NotEqual(t, "mutated", b[0])
}
