package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(t *testing.T, chainKey string, kind EventKind) *AuditEvent {
	t.Helper()
	payload, err := json.Marshal(TransitionPayload{Sequence: 1, From: "DRAFT", To: "SUBMITTED"})
	require.NoError(t, err)
	return &AuditEvent{
		ID:        uuid.New(),
		ChainKey:  chainKey,
		Actor:     "a.khan",
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestSealGenesis(t *testing.T) {
	ev := newEvent(t, "case-1", EventSubmitted)
	require.NoError(t, ev.Seal(nil))

	assert.Equal(t, int64(1), ev.Seq)
	assert.Equal(t, GenesisHash, ev.PrevHash)
	assert.Len(t, ev.EventHash, 64)
	assert.True(t, ev.Verify(nil))
}

func TestSealLinksToPrevious(t *testing.T) {
	first := newEvent(t, "case-1", EventGenerated)
	require.NoError(t, first.Seal(nil))

	second := newEvent(t, "case-1", EventSubmitted)
	require.NoError(t, second.Seal(first))

	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, first.EventHash, second.PrevHash)
	assert.True(t, second.Verify(first))
}

func TestSealRefusesCrossChain(t *testing.T) {
	first := newEvent(t, "case-1", EventGenerated)
	require.NoError(t, first.Seal(nil))

	other := newEvent(t, "case-2", EventSubmitted)
	assert.Error(t, other.Seal(first))
}

func TestVerifyDetectsFieldChanges(t *testing.T) {
	first := newEvent(t, "case-1", EventGenerated)
	require.NoError(t, first.Seal(nil))
	second := newEvent(t, "case-1", EventSubmitted)
	require.NoError(t, second.Seal(first))

	mutations := []func(*AuditEvent){
		func(e *AuditEvent) { e.Actor = "intruder" },
		func(e *AuditEvent) { e.Kind = EventApproved },
		func(e *AuditEvent) { e.Payload = json.RawMessage(`{"sequence":9}`) },
		func(e *AuditEvent) { e.Seq = 7 },
		func(e *AuditEvent) { e.CreatedAt = e.CreatedAt.Add(time.Second) },
		func(e *AuditEvent) { e.PrevHash = GenesisHash },
	}
	for i, mutate := range mutations {
		tampered := *second
		mutate(&tampered)
		assert.False(t, tampered.Verify(first), "mutation %d must break verification", i)
	}
}

func TestHashDeterministic(t *testing.T) {
	ev := newEvent(t, "case-1", EventGenerated)
	first, err := ev.ComputeHash(GenesisHash)
	require.NoError(t, err)
	second, err := ev.ComputeHash(GenesisHash)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := ev.ComputeHash("ff")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}
