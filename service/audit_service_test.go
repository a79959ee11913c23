package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sardraft-backend/models"
)

func TestRecordBuildsGaplessChain(t *testing.T) {
	store := newMemStore()
	audit := NewAuditService(AuditWithStore(store))
	ctx := context.Background()
	caseID := uuid.New()

	for i := 0; i < 5; i++ {
		err := audit.Record(ctx, &caseID, "a.khan", models.EventEdited, models.EditedPayload{Sequence: 1, EditedChars: i})
		require.NoError(t, err)
	}

	events, err := store.ListByChain(ctx, caseID.String())
	require.NoError(t, err)
	require.Len(t, events, 5)

	assert.Equal(t, models.GenesisHash, events[0].PrevHash)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Seq)
		if i > 0 {
			assert.Equal(t, events[i-1].EventHash, ev.PrevHash)
		}
	}

	report, err := audit.VerifyChainKey(ctx, caseID.String())
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 5, report.Events)
	assert.NoError(t, report.Err())
}

func TestChainsAreIndependent(t *testing.T) {
	store := newMemStore()
	audit := NewAuditService(AuditWithStore(store))
	ctx := context.Background()
	caseA, caseB := uuid.New(), uuid.New()

	require.NoError(t, audit.Record(ctx, &caseA, "a", models.EventSubmitted, models.TransitionPayload{}))
	require.NoError(t, audit.Record(ctx, &caseB, "b", models.EventSubmitted, models.TransitionPayload{}))
	require.NoError(t, audit.Record(ctx, nil, "b", models.EventLogin, models.LoginPayload{Username: "b"}))

	for _, key := range []string{caseA.String(), caseB.String(), models.SystemChainKey} {
		events, err := store.ListByChain(ctx, key)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, int64(1), events[0].Seq)
		assert.Equal(t, models.GenesisHash, events[0].PrevHash)
	}
}

func TestVerifyDetectsTamperedPayload(t *testing.T) {
	store := newMemStore()
	audit := NewAuditService(AuditWithStore(store))
	ctx := context.Background()
	caseID := uuid.New()

	for i := 0; i < 4; i++ {
		require.NoError(t, audit.Record(ctx, &caseID, "a.khan", models.EventEdited, models.EditedPayload{Sequence: 1, EditedChars: i}))
	}

	// Rewrite the payload of the second event behind the store's back.
	var tamperedID uuid.UUID
	store.tamper(caseID.String(), 2, func(ev *models.AuditEvent) {
		tamperedID = ev.ID
		ev.Payload = json.RawMessage(`{"sequence":1,"original_chars":0,"edited_chars":999}`)
	})

	report, err := audit.VerifyChainKey(ctx, caseID.String())
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.NotNil(t, report.FirstInvalidID)
	assert.Equal(t, tamperedID, *report.FirstInvalidID)
	assert.Equal(t, int64(2), report.FirstInvalidSeq)

	var integrityErr *IntegrityError
	require.ErrorAs(t, report.Err(), &integrityErr)
	assert.Equal(t, tamperedID, integrityErr.EventID)
}

func TestVerifyDetectsRewrittenHashes(t *testing.T) {
	store := newMemStore()
	audit := NewAuditService(AuditWithStore(store))
	ctx := context.Background()
	caseID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, audit.Record(ctx, &caseID, "a.khan", models.EventEdited, models.EditedPayload{Sequence: 1}))
	}

	// An attacker who recomputes the tampered event's own hash still
	// breaks the back-link of the next event.
	store.tamper(caseID.String(), 2, func(ev *models.AuditEvent) {
		ev.Actor = "someone.else"
		hash, err := ev.ComputeHash(ev.PrevHash)
		require.NoError(t, err)
		ev.EventHash = hash
	})

	report, err := audit.VerifyChainKey(ctx, caseID.String())
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, int64(3), report.FirstInvalidSeq)
}

func TestVerifyDetectsSequenceGap(t *testing.T) {
	store := newMemStore()
	audit := NewAuditService(AuditWithStore(store))
	ctx := context.Background()
	caseID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, audit.Record(ctx, &caseID, "a.khan", models.EventEdited, models.EditedPayload{Sequence: 1}))
	}

	store.mu.Lock()
	chain := store.chains[caseID.String()]
	store.chains[caseID.String()] = append(chain[:1], chain[2:]...)
	store.mu.Unlock()

	report, err := audit.VerifyChainKey(ctx, caseID.String())
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, int64(3), report.FirstInvalidSeq)
}

func TestListCaseEventsRequiresAuditDomain(t *testing.T) {
	store := newMemStore()
	audit := NewAuditService(AuditWithStore(store))
	ctx := context.Background()
	caseID := uuid.New()

	require.NoError(t, audit.Record(ctx, &caseID, "a.khan", models.EventSubmitted, models.TransitionPayload{}))

	_, err := audit.ListCaseEvents(ctx, analyst, caseID)
	require.Error(t, err)

	events, err := audit.ListCaseEvents(ctx, supervisor, caseID)
	require.NoError(t, err)
	// The analyst's refused attempt is itself on the chain.
	require.Len(t, events, 2)
	assert.Equal(t, models.EventAccessDenied, events[1].Kind)
	assert.Equal(t, "a.khan", events[1].Actor)
}

func TestVerifyEmptyChain(t *testing.T) {
	audit := NewAuditService(AuditWithStore(newMemStore()))
	report, err := audit.VerifyChainKey(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Zero(t, report.Events)
}
