package statesync_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkitektio/rekuest-next/locks"
	"github.com/arkitektio/rekuest-next/port"
	"github.com/arkitektio/rekuest-next/registry"
	"github.com/arkitektio/rekuest-next/shelf"
	"github.com/arkitektio/rekuest-next/statesync"
)

type recordingPublisher struct {
	mu        sync.Mutex
	envelopes []statesync.Envelope
	done      chan struct{}
}

func newRecordingPublisher(expect int) *recordingPublisher {
	return &recordingPublisher{done: make(chan struct{}, expect)}
}

func (p *recordingPublisher) PublishEnvelope(ctx context.Context, stateName string, env statesync.Envelope) error {
	p.mu.Lock()
	p.envelopes = append(p.envelopes, env)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func (p *recordingPublisher) waitFor(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-p.done:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for envelope %d/%d", i+1, n)
		}
	}
}

type counterState struct {
	Counter int    `json:"counter"`
	Label   string `json:"label"`
}

func counterSchema() *port.Port {
	id := "counterState"
	return &port.Port{
		Key:        "state",
		Kind:       port.KindModel,
		Identifier: &id,
		Children: []*port.Port{
			{Key: "counter", Kind: port.KindInt},
			{Key: "label", Kind: port.KindString, Nullable: true},
		},
	}
}

func TestWorker_SquashesBurstIntoOneEnvelope(t *testing.T) {
	state := &counterState{Counter: 0, Label: "init"}
	pub := newRecordingPublisher(1)
	reg := registry.New()

	w := statesync.New(state, pub, shelf.New(), statesync.Config{
		StateName:       "counter",
		StateSchema:     counterSchema(),
		PublishInterval: 30 * time.Millisecond,
		StructureRegistry: reg,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	proxy, err := statesync.Observe(ctx, state, w)
	require.NoError(t, err)

	require.NoError(t, proxy.Set("Counter", 1))
	require.NoError(t, proxy.Set("Counter", 2))
	require.NoError(t, proxy.Set("Counter", 3))

	pub.waitFor(t, 1)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.envelopes, 1)
	env := pub.envelopes[0]
	assert.Equal(t, 1, env.Rev)
	assert.Equal(t, 0, env.BaseRev)
	require.Len(t, env.Patches, 1, "three updates to the same path squash to one patch")
	assert.Equal(t, "/counter", env.Patches[0].Path)
	assert.Equal(t, 3, env.Patches[0].Value)
}

func TestWorker_RevisionsAreMonotonicAndBaseRevChains(t *testing.T) {
	state := &counterState{Counter: 0, Label: "init"}
	pub := newRecordingPublisher(2)
	reg := registry.New()

	w := statesync.New(state, pub, shelf.New(), statesync.Config{
		StateName:       "counter",
		StateSchema:     counterSchema(),
		PublishInterval: 5 * time.Millisecond,
		StructureRegistry: reg,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	proxy, err := statesync.Observe(ctx, state, w)
	require.NoError(t, err)

	require.NoError(t, proxy.Set("Counter", 1))
	pub.waitFor(t, 1)
	require.NoError(t, proxy.Set("Label", "next"))
	pub.waitFor(t, 1)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.envelopes, 2)
	assert.Equal(t, 1, pub.envelopes[0].Rev)
	assert.Equal(t, 0, pub.envelopes[0].BaseRev)
	assert.Equal(t, 2, pub.envelopes[1].Rev)
	assert.Equal(t, 1, pub.envelopes[1].BaseRev)
}

func TestWorker_GetRevisionLazilyShrinksInitialSnapshot(t *testing.T) {
	state := &counterState{Counter: 42, Label: "seed"}
	pub := newRecordingPublisher(0)
	reg := registry.New()

	w := statesync.New(state, pub, shelf.New(), statesync.Config{
		StateName:       "counter",
		StateSchema:     counterSchema(),
		StructureRegistry: reg,
	})

	rs, err := w.GetRevision(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Revision)
	assert.Equal(t, 42, rs.Data["counter"])
	assert.Equal(t, "seed", rs.Data["label"])
}

func TestWorker_PutPatchRejectsMissingRequiredLock(t *testing.T) {
	state := &counterState{}
	pub := newRecordingPublisher(0)
	reg := registry.New()

	w := statesync.New(state, pub, shelf.New(), statesync.Config{
		StateName:         "counter",
		StateSchema:       counterSchema(),
		StructureRegistry: reg,
		RequiredLockNames: []string{"gpu"},
	})

	err := w.PutPatch(context.Background(), statesync.Patch{Op: statesync.OpReplace, Path: "/counter", Value: 1})
	require.Error(t, err)
	var lockErr *statesync.LockViolationError
	require.ErrorAs(t, err, &lockErr)

	held := locks.WithHeld(context.Background(), []string{"gpu"})
	err = w.PutPatch(held, statesync.Patch{Op: statesync.OpReplace, Path: "/counter", Value: 1})
	assert.NoError(t, err)
}
