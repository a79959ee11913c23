package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sardraft-backend/models"
)

// memStore is an in-memory implementation of every store interface, with
// the same sealing and compare-and-swap semantics as the Postgres
// repositories.
type memStore struct {
	mu        sync.Mutex
	cases     map[uuid.UUID]*models.Case
	alerts    map[uuid.UUID]*models.Alert
	customers map[string]*models.CustomerProfile
	versions  []*models.NarrativeVersion
	chains    map[string][]*models.AuditEvent
	leases    map[uuid.UUID]memLease
	users     map[string]*models.User
	filings   map[uuid.UUID]*models.Filing
	decisions []*models.ApprovalDecision

	failAppend bool
}

type memLease struct {
	holder  string
	expires time.Time
}

func newMemStore() *memStore {
	return &memStore{
		cases:     make(map[uuid.UUID]*models.Case),
		alerts:    make(map[uuid.UUID]*models.Alert),
		customers: make(map[string]*models.CustomerProfile),
		chains:    make(map[string][]*models.AuditEvent),
		leases:    make(map[uuid.UUID]memLease),
		users:     make(map[string]*models.User),
		filings:   make(map[uuid.UUID]*models.Filing),
	}
}

// appendLocked seals ev onto its chain. Callers hold mu.
func (m *memStore) appendLocked(ev *models.AuditEvent) error {
	if m.failAppend {
		return errors.New("audit store unavailable")
	}
	chain := m.chains[ev.ChainKey]
	var prev *models.AuditEvent
	if len(chain) > 0 {
		prev = chain[len(chain)-1]
	}
	if err := ev.Seal(prev); err != nil {
		return err
	}
	stored := *ev
	m.chains[ev.ChainKey] = append(chain, &stored)
	return nil
}

func (m *memStore) Append(ctx context.Context, ev *models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(ev)
}

func (m *memStore) ListByChain(ctx context.Context, chainKey string) ([]*models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chain := m.chains[chainKey]
	out := make([]*models.AuditEvent, len(chain))
	for i, ev := range chain {
		copied := *ev
		out[i] = &copied
	}
	return out, nil
}

// tamper mutates a stored event in place, bypassing the append-only rule,
// to simulate direct database manipulation.
func (m *memStore) tamper(chainKey string, seq int64, mutate func(*models.AuditEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.chains[chainKey] {
		if ev.Seq == seq {
			mutate(ev)
			return
		}
	}
}

func (m *memStore) Create(ctx context.Context, c *models.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *c
	m.cases[c.ID] = &copied
	return nil
}

func (m *memStore) Get(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (m *memStore) List(ctx context.Context, status models.CaseStatus) ([]*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Case
	for _, c := range m.cases {
		if status != "" && c.Status != status {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Reference < out[b].Reference })
	return out, nil
}

func (m *memStore) LoadBundle(ctx context.Context, caseID uuid.UUID) (*CaseBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[caseID]
	if !ok {
		return nil, nil
	}
	bundle := &CaseBundle{}
	caseCopy := *c
	bundle.Case = &caseCopy
	if a, ok := m.alerts[c.AlertID]; ok {
		alertCopy := *a
		bundle.Alert = &alertCopy
	}
	if cu, ok := m.customers[c.CustomerID]; ok {
		custCopy := *cu
		bundle.Customer = &custCopy
	}
	return bundle, nil
}

func (m *memStore) MaxSequence(ctx context.Context, caseID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, v := range m.versions {
		if v.CaseID == caseID && v.Sequence > max {
			max = v.Sequence
		}
	}
	return max, nil
}

func (m *memStore) currentLocked(caseID uuid.UUID) *models.NarrativeVersion {
	var current *models.NarrativeVersion
	for _, v := range m.versions {
		if v.CaseID == caseID && (current == nil || v.Sequence > current.Sequence) {
			current = v
		}
	}
	return current
}

func (m *memStore) CurrentVersion(ctx context.Context, caseID uuid.UUID) (*models.NarrativeVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.currentLocked(caseID)
	if current == nil {
		return nil, nil
	}
	copied := *current
	return &copied, nil
}

func (m *memStore) GetVersion(ctx context.Context, id uuid.UUID) (*models.NarrativeVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.ID == id {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListVersions(ctx context.Context, caseID uuid.UUID) ([]*models.NarrativeVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.NarrativeVersion
	for _, v := range m.versions {
		if v.CaseID == caseID {
			copied := *v
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Sequence < out[b].Sequence })
	return out, nil
}

func (m *memStore) CreateVersionWithEvent(ctx context.Context, v *models.NarrativeVersion, ev *models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.appendLocked(ev); err != nil {
		return err
	}
	copied := *v
	m.versions = append(m.versions, &copied)
	if c, ok := m.cases[v.CaseID]; ok {
		c.Status = models.CaseDraft
	}
	return nil
}

func (m *memStore) UpdateBodyWithEvent(ctx context.Context, versionID uuid.UUID, sequence int, body, author string, ev *models.AuditEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.ID == versionID && v.Sequence == sequence && v.State == models.StateDraft {
			if err := m.appendLocked(ev); err != nil {
				return false, err
			}
			v.Body = body
			v.Author = author
			v.UpdatedAt = time.Now().UTC()
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Transition(ctx context.Context, p TransitionParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.ID != p.VersionID || v.Sequence != p.Sequence {
			continue
		}
		if v.State != p.From {
			return false, nil
		}
		if err := m.appendLocked(p.Event); err != nil {
			return false, err
		}
		v.State = p.To
		v.UpdatedAt = time.Now().UTC()
		if c, ok := m.cases[p.CaseID]; ok {
			c.Status = p.CaseStatus
		}
		if p.Decision != nil {
			copied := *p.Decision
			m.decisions = append(m.decisions, &copied)
		}
		if p.Filing != nil {
			copied := *p.Filing
			m.filings[p.CaseID] = &copied
		}
		return true, nil
	}
	return false, nil
}

func (m *memStore) Acquire(ctx context.Context, caseID uuid.UUID, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if l, ok := m.leases[caseID]; ok && l.expires.After(now) {
		return false, nil
	}
	m.leases[caseID] = memLease{holder: holder, expires: now.Add(ttl)}
	return true, nil
}

func (m *memStore) Release(ctx context.Context, caseID uuid.UUID, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leases[caseID]; ok && l.holder == holder {
		delete(m.leases, caseID)
	}
	return nil
}

func (m *memStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *u
	m.users[u.Username] = &copied
	return nil
}

func (m *memStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			t := at
			u.LastLogin = &t
		}
	}
	return nil
}

func (m *memStore) GetByCase(ctx context.Context, caseID uuid.UUID) (*models.Filing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.filings[caseID]
	if !ok {
		return nil, nil
	}
	copied := *f
	return &copied, nil
}

func (m *memStore) CreateAlert(ctx context.Context, a *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *a
	m.alerts[a.ID] = &copied
	return nil
}

func (m *memStore) GetAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (m *memStore) UpsertCustomer(ctx context.Context, c *models.CustomerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *c
	m.customers[c.CustomerID] = &copied
	return nil
}

func (m *memStore) GetCustomer(ctx context.Context, customerID string) (*models.CustomerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

// userStore adapts memStore to UserStore, whose Create collides with
// CaseStore's.
type userStore struct{ *memStore }

func (u userStore) Create(ctx context.Context, usr *models.User) error {
	return u.CreateUser(ctx, usr)
}

// alertStore and customerStore adapt memStore the same way.
type alertStore struct{ *memStore }

func (a alertStore) Create(ctx context.Context, al *models.Alert) error {
	return a.CreateAlert(ctx, al)
}

func (a alertStore) Get(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	return a.GetAlert(ctx, id)
}

type customerStore struct{ *memStore }

func (c customerStore) Upsert(ctx context.Context, p *models.CustomerProfile) error {
	return c.UpsertCustomer(ctx, p)
}

func (c customerStore) Get(ctx context.Context, customerID string) (*models.CustomerProfile, error) {
	return c.GetCustomer(ctx, customerID)
}
