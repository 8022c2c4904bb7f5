package repository

import (
	"context"

	"github.com/duetapp/pairing-server-go/internal/database"
	"github.com/duetapp/pairing-server-go/internal/model"
)

type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Profile, error)
	Create(ctx context.Context, params model.CreateProfileParams) (*model.Profile, error)
}

type profileRepo struct {
	q database.DBTX
}

func NewProfileRepository(q database.DBTX) ProfileRepository {
	return &profileRepo{q: q}
}

func (r *profileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.q.GetContext(ctx, &profile, `
		SELECT * FROM profiles WHERE id = $1
	`, id)
	return HandleNotFound(&profile, err)
}

func (r *profileRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Profile, error) {
	var profile model.Profile
	err := r.q.GetContext(ctx, &profile, `
		SELECT * FROM profiles WHERE api_token_hash = $1
	`, tokenHash)
	return HandleNotFound(&profile, err)
}

func (r *profileRepo) Create(ctx context.Context, params model.CreateProfileParams) (*model.Profile, error) {
	var profile model.Profile
	err := r.q.GetContext(ctx, &profile, `
		INSERT INTO profiles (display_name, email, api_token_hash)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.DisplayName, params.Email, params.APITokenHash)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
