package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/duetapp/pairing-server-go/internal/database"
	"github.com/duetapp/pairing-server-go/internal/model"
)

// PartnershipRepository is the store behind the pairing protocol. The
// partnerships table is keyed by owner_id; lookups by user are symmetric
// (owner or partner side). ClaimPartner is the one conditional write: it
// succeeds only while the partner slot is still empty, so concurrent
// redeemers of the same code cannot overwrite each other.
type PartnershipRepository interface {
	FindByUser(ctx context.Context, userID string) (*model.Partnership, error)
	FindByCode(ctx context.Context, code string) (*model.Partnership, error)
	Upsert(ctx context.Context, params model.UpsertPartnershipParams) (*model.Partnership, error)
	ClaimPartner(ctx context.Context, ownerID, partnerID string, pairedAt time.Time) (bool, error)
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type partnershipRepo struct {
	db *database.DB
	q  database.DBTX
}

func NewPartnershipRepository(db *database.DB) PartnershipRepository {
	return &partnershipRepo{db: db, q: db}
}

func (r *partnershipRepo) FindByUser(ctx context.Context, userID string) (*model.Partnership, error) {
	var p model.Partnership
	err := r.q.GetContext(ctx, &p, `
		SELECT * FROM partnerships
		WHERE owner_id = $1 OR partner_id = $1
		ORDER BY (partner_id IS NULL), created_at
		LIMIT 1
	`, userID)
	return HandleNotFound(&p, err)
}

func (r *partnershipRepo) FindByCode(ctx context.Context, code string) (*model.Partnership, error) {
	var p model.Partnership
	err := r.q.GetContext(ctx, &p, `
		SELECT * FROM partnerships
		WHERE pairing_code = $1
	`, code)
	return HandleNotFound(&p, err)
}

// Upsert creates or refreshes the owner's row with a new code and expiry.
// The guard on partner_id keeps a paired row from being clobbered even if
// the service-level check raced with a redemption; when the guard blocks the
// write nothing is returned, and the caller sees nil.
func (r *partnershipRepo) Upsert(ctx context.Context, params model.UpsertPartnershipParams) (*model.Partnership, error) {
	var p model.Partnership
	err := r.q.GetContext(ctx, &p, `
		INSERT INTO partnerships (owner_id, pairing_code, code_expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE SET
			pairing_code = EXCLUDED.pairing_code,
			code_expires_at = EXCLUDED.code_expires_at,
			updated_at = NOW()
		WHERE partnerships.partner_id IS NULL
		RETURNING *
	`, params.OwnerID, params.PairingCode, params.CodeExpiresAt)
	return HandleNotFound(&p, err)
}

// ClaimPartner sets the partner on the owner's row only if the slot is still
// empty. Returns false when another redeemer got there first. On a win the
// redeemer's own unredeemed row, if any, is discarded in the same
// transaction so the symmetric lookup never matches two rows for one user.
func (r *partnershipRepo) ClaimPartner(ctx context.Context, ownerID, partnerID string, pairedAt time.Time) (bool, error) {
	var claimed bool
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE partnerships SET
				partner_id = $2,
				paired_at = $3,
				updated_at = NOW()
			WHERE owner_id = $1 AND partner_id IS NULL
		`, ownerID, partnerID, pairedAt)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected != 1 {
			return nil
		}
		claimed = true

		_, err = tx.ExecContext(ctx, `
			DELETE FROM partnerships
			WHERE owner_id = $1 AND partner_id IS NULL
		`, partnerID)
		return err
	})
	return claimed, err
}

func (r *partnershipRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM partnerships
		WHERE owner_id = $1 OR partner_id = $1
	`, userID)
	return err
}

// DeleteExpired prunes unredeemed rows whose code window has passed.
// Expiry is still enforced at redemption time; this is hygiene only.
func (r *partnershipRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.q.ExecContext(ctx, `
		DELETE FROM partnerships
		WHERE partner_id IS NULL AND code_expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
