package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind represents the type of an audit event
type EventKind string

const (
	EventGenerated        EventKind = "GENERATED"
	EventGenerationFailed EventKind = "GENERATION_FAILED"
	EventRetrieved        EventKind = "RETRIEVED"
	EventEdited           EventKind = "EDITED"
	EventSubmitted        EventKind = "SUBMITTED"
	EventApproved         EventKind = "APPROVED"
	EventRejected         EventKind = "REJECTED"
	EventFiled            EventKind = "FILED"
	EventAccessDenied     EventKind = "ACCESS_DENIED"
	EventLogin            EventKind = "LOGIN"
	EventLoginFailed      EventKind = "LOGIN_FAILED"
)

// SystemChainKey is the reserved chain for events not tied to a case,
// such as logins. No case may use this identifier.
const SystemChainKey = "__system__"

// GenesisHash is the prev_hash of the first event in every chain.
var GenesisHash = hex.EncodeToString(make([]byte, sha256.Size))

// AuditEvent is one link in a per-case hash chain. Events are append-only:
// once written they are never updated or deleted, and each event's hash
// covers the previous event's hash.
type AuditEvent struct {
	ID        uuid.UUID       `json:"id"`
	ChainKey  string          `json:"chain_key"`
	CaseID    *uuid.UUID      `json:"case_id,omitempty"`
	Seq       int64           `json:"seq"`
	Actor     string          `json:"actor"`
	Kind      EventKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	PrevHash  string          `json:"prev_hash"`
	EventHash string          `json:"event_hash"`
}

// hashEnvelope is the canonical byte representation hashed into EventHash.
// Field order is fixed by the struct; payloads are structs, never maps, so
// json.Marshal is deterministic. The timestamp is rendered at microsecond
// precision because that is what the database round-trips.
type hashEnvelope struct {
	ID        string          `json:"id"`
	ChainKey  string          `json:"chain_key"`
	Seq       int64           `json:"seq"`
	Actor     string          `json:"actor"`
	Kind      EventKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

// ComputeHash returns the hex digest of prevHash concatenated with the
// event's canonical serialization.
func (e *AuditEvent) ComputeHash(prevHash string) (string, error) {
	env := hashEnvelope{
		ID:        e.ID.String(),
		ChainKey:  e.ChainKey,
		Seq:       e.Seq,
		Actor:     e.Actor,
		Kind:      e.Kind,
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano),
	}
	bytes, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to serialize audit event: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(bytes)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Seal assigns the event its position in the chain after prev and computes
// its hash. A nil prev seals the genesis event of the chain.
func (e *AuditEvent) Seal(prev *AuditEvent) error {
	if prev == nil {
		e.Seq = 1
		e.PrevHash = GenesisHash
	} else {
		if prev.ChainKey != e.ChainKey {
			return fmt.Errorf("cannot chain event onto key %q, event belongs to %q", prev.ChainKey, e.ChainKey)
		}
		e.Seq = prev.Seq + 1
		e.PrevHash = prev.EventHash
	}
	hash, err := e.ComputeHash(e.PrevHash)
	if err != nil {
		return err
	}
	e.EventHash = hash
	return nil
}

// Verify recomputes the event's hash from its stored fields and reports
// whether it matches EventHash and links to prev.
func (e *AuditEvent) Verify(prev *AuditEvent) bool {
	expectedPrev := GenesisHash
	expectedSeq := int64(1)
	if prev != nil {
		expectedPrev = prev.EventHash
		expectedSeq = prev.Seq + 1
	}
	if e.PrevHash != expectedPrev || e.Seq != expectedSeq {
		return false
	}
	hash, err := e.ComputeHash(e.PrevHash)
	if err != nil {
		return false
	}
	return hash == e.EventHash
}

// RetrievedDoc is one ranked corpus document in a RETRIEVED payload
type RetrievedDoc struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// RetrievedPayload records the retrieval step of a generation
type RetrievedPayload struct {
	Query     string         `json:"query"`
	Documents []RetrievedDoc `json:"documents"`
}

// GeneratedPayload records a successful narrative generation
type GeneratedPayload struct {
	Sequence       int      `json:"sequence"`
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	LatencyMS      int64    `json:"latency_ms"`
	TokensUsed     int      `json:"tokens_used"`
	RequestDigest  string   `json:"request_digest"`
	IndicatorCount int      `json:"indicator_count"`
	Typologies     []string `json:"typologies"`
	Confidence     string   `json:"confidence,omitempty"`
}

// GenerationFailedPayload records an aborted generation attempt
type GenerationFailedPayload struct {
	Stage         string `json:"stage"`
	Reason        string `json:"reason"`
	RequestDigest string `json:"request_digest,omitempty"`
}

// EditedPayload records an analyst edit to a draft narrative
type EditedPayload struct {
	Sequence      int `json:"sequence"`
	OriginalChars int `json:"original_chars"`
	EditedChars   int `json:"edited_chars"`
}

// TransitionPayload records a review state transition
type TransitionPayload struct {
	Sequence  int    `json:"sequence"`
	From      string `json:"from"`
	To        string `json:"to"`
	Rationale string `json:"rationale,omitempty"`
}

// FiledPayload records the filing of an approved narrative
type FiledPayload struct {
	Sequence     int    `json:"sequence"`
	SARReference string `json:"sar_reference"`
	ArchivePath  string `json:"archive_path,omitempty"`
}

// AccessDeniedPayload records a refused authorization check
type AccessDeniedPayload struct {
	Action string `json:"action"`
	Domain string `json:"domain"`
	Reason string `json:"reason"`
}

// LoginPayload records an authentication attempt
type LoginPayload struct {
	Username string `json:"username"`
	Reason   string `json:"reason,omitempty"`
}
