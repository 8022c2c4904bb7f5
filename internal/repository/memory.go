package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/duetapp/pairing-server-go/internal/model"
)

// MemoryPartnershipRepository is the offline fallback store: one record per
// partnership in a mutex-guarded map, symmetric lookup instead of mirrored
// rows. It implements the same conditional-claim semantics as the Postgres
// store, so redemption races behave identically in tests and demo mode.
type MemoryPartnershipRepository struct {
	mu   sync.Mutex
	rows map[string]*model.Partnership // keyed by owner_id
}

func NewMemoryPartnershipRepository() *MemoryPartnershipRepository {
	return &MemoryPartnershipRepository{
		rows: make(map[string]*model.Partnership),
	}
}

var _ PartnershipRepository = (*MemoryPartnershipRepository)(nil)

func (r *MemoryPartnershipRepository) FindByUser(ctx context.Context, userID string) (*model.Partnership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Paired rows win over a leftover unredeemed row for the same user.
	var unpaired *model.Partnership
	for _, p := range r.rows {
		if p.OwnerID == userID || (p.PartnerID != nil && *p.PartnerID == userID) {
			if p.PartnerID != nil {
				return copyPartnership(p), nil
			}
			unpaired = p
		}
	}
	if unpaired != nil {
		return copyPartnership(unpaired), nil
	}
	return nil, nil
}

func (r *MemoryPartnershipRepository) FindByCode(ctx context.Context, code string) (*model.Partnership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.rows {
		if p.PairingCode == code {
			return copyPartnership(p), nil
		}
	}
	return nil, nil
}

func (r *MemoryPartnershipRepository) Upsert(ctx context.Context, params model.UpsertPartnershipParams) (*model.Partnership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.rows[params.OwnerID]; ok {
		// Paired rows keep their state; the guard reports nil just like the
		// conditional upsert in the Postgres store.
		if existing.PartnerID != nil {
			return nil, nil
		}
		existing.PairingCode = params.PairingCode
		existing.CodeExpiresAt = params.CodeExpiresAt
		existing.UpdatedAt = now
		return copyPartnership(existing), nil
	}

	p := &model.Partnership{
		OwnerID:       params.OwnerID,
		PairingCode:   params.PairingCode,
		CodeExpiresAt: params.CodeExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.rows[params.OwnerID] = p
	return copyPartnership(p), nil
}

func (r *MemoryPartnershipRepository) ClaimPartner(ctx context.Context, ownerID, partnerID string, pairedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.rows[ownerID]
	if !ok || p.PartnerID != nil {
		return false, nil
	}

	id := partnerID
	ts := pairedAt
	p.PartnerID = &id
	p.PairedAt = &ts
	p.UpdatedAt = time.Now()

	// Same mutex hold as the claim, mirroring the Postgres transaction: a
	// winning redeemer's own unredeemed row is discarded so the symmetric
	// lookup never matches two rows for one user.
	if own, ok := r.rows[partnerID]; ok && own.PartnerID == nil {
		delete(r.rows, partnerID)
	}
	return true, nil
}

func (r *MemoryPartnershipRepository) DeleteByUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for owner, p := range r.rows {
		if p.OwnerID == userID || (p.PartnerID != nil && *p.PartnerID == userID) {
			delete(r.rows, owner)
		}
	}
	return nil
}

func (r *MemoryPartnershipRepository) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var deleted int64
	for owner, p := range r.rows {
		if p.PartnerID == nil && p.CodeExpiresAt.Before(now) {
			delete(r.rows, owner)
			deleted++
		}
	}
	return deleted, nil
}

func copyPartnership(p *model.Partnership) *model.Partnership {
	cp := *p
	if p.PartnerID != nil {
		id := *p.PartnerID
		cp.PartnerID = &id
	}
	if p.PairedAt != nil {
		ts := *p.PairedAt
		cp.PairedAt = &ts
	}
	return &cp
}

// MemoryProfileRepository backs the profile lookup in offline mode.
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*model.Profile
	byToken  map[string]string
}

func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{
		profiles: make(map[string]*model.Profile),
		byToken:  make(map[string]string),
	}
}

var _ ProfileRepository = (*MemoryProfileRepository)(nil)

func (r *MemoryProfileRepository) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryProfileRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.byToken[tokenHash]; ok {
		if p, ok := r.profiles[id]; ok {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryProfileRepository) Create(ctx context.Context, params model.CreateProfileParams) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := &model.Profile{
		ID:           newMemoryID(),
		DisplayName:  params.DisplayName,
		Email:        params.Email,
		APITokenHash: params.APITokenHash,
		CreatedAt:    time.Now(),
	}
	r.profiles[p.ID] = p
	if params.APITokenHash != "" {
		r.byToken[params.APITokenHash] = p.ID
	}
	cp := *p
	return &cp, nil
}

func newMemoryID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
