package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duetapp/pairing-server-go/internal/audit"
	apperrors "github.com/duetapp/pairing-server-go/internal/errors"
	"github.com/duetapp/pairing-server-go/internal/model"
	"github.com/duetapp/pairing-server-go/internal/repository"
	"github.com/duetapp/pairing-server-go/internal/util"
)

const (
	pairingCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	pairingCodeLength = 6
	maxIssueAttempts  = 10
)

// PairingService implements the partner pairing protocol:
// unpaired -> code-issued -> paired -> unlinked. The clock is injected so
// expiry behavior is testable without sleeping.
type PairingService struct {
	partnershipRepo repository.PartnershipRepository
	profileRepo     repository.ProfileRepository
	codeTTL         time.Duration
	now             func() time.Time
}

func NewPairingService(
	partnershipRepo repository.PartnershipRepository,
	profileRepo repository.ProfileRepository,
	codeTTL time.Duration,
) *PairingService {
	return &PairingService{
		partnershipRepo: partnershipRepo,
		profileRepo:     profileRepo,
		codeTTL:         codeTTL,
		now:             time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *PairingService) WithClock(now func() time.Time) *PairingService {
	s.now = now
	return s
}

// IssueCode generates a fresh pairing code for userID and upserts the
// owner's row. Regeneration overwrites any previous unredeemed code, which
// permanently invalidates it. Fails with AlreadyPaired for paired users.
func (s *PairingService) IssueCode(ctx context.Context, userID string) (*model.IssuedCode, error) {
	existing, err := s.partnershipRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if existing != nil && existing.IsPaired() {
		return nil, apperrors.AlreadyPaired()
	}

	// Codes are unique among outstanding codes, so the redeem lookup can
	// never match the wrong owner. Collisions across 36^6 are rare enough
	// that a bounded retry is sufficient.
	var code string
	for attempts := 0; ; attempts++ {
		if attempts >= maxIssueAttempts {
			return nil, apperrors.Internal("could not generate a unique pairing code")
		}
		code, err = generatePairingCode()
		if err != nil {
			return nil, apperrors.Internal("could not generate a pairing code")
		}
		taken, err := s.partnershipRepo.FindByCode(ctx, code)
		if err != nil {
			return nil, apperrors.StoreUnavailable(err)
		}
		if taken == nil || taken.OwnerID == userID {
			break
		}
	}

	expiresAt := s.now().Add(s.codeTTL)
	p, err := s.partnershipRepo.Upsert(ctx, model.UpsertPartnershipParams{
		OwnerID:       userID,
		PairingCode:   code,
		CodeExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if p == nil {
		// The upsert guard blocked the write: a redemption landed between
		// the paired check above and the write.
		return nil, apperrors.AlreadyPaired()
	}

	log.Info().
		Str("userId", userID).
		Str("code", util.MaskCode(code)).
		Time("expiresAt", p.CodeExpiresAt).
		Msg("pairing code issued")
	audit.Log(audit.Event{Type: audit.EventCodeIssued, UserID: userID})

	return &model.IssuedCode{Code: p.PairingCode, ExpiresAt: p.CodeExpiresAt}, nil
}

// RedeemCode links the redeemer to the code's owner. Preconditions are
// checked strictly in order; each failure carries its own error code so the
// user learns exactly why pairing did not happen. The final claim is a
// conditional write: the first concurrent redeemer wins, the rest see
// CodeAlreadyUsed.
func (s *PairingService) RedeemCode(ctx context.Context, redeemerID, code string) (string, error) {
	normalized := util.NormalizeCode(code)
	if !util.IsValidPairingCode(normalized) {
		return "", apperrors.InvalidInput("code", fmt.Sprintf("must be %d characters A-Z0-9", pairingCodeLength))
	}

	mine, err := s.partnershipRepo.FindByUser(ctx, redeemerID)
	if err != nil {
		return "", apperrors.StoreUnavailable(err)
	}
	if mine != nil && mine.IsPaired() {
		return "", apperrors.AlreadyPaired()
	}

	p, err := s.partnershipRepo.FindByCode(ctx, normalized)
	if err != nil {
		return "", apperrors.StoreUnavailable(err)
	}
	if p == nil {
		s.rejectRedeem(redeemerID, normalized, "invalid_code")
		return "", apperrors.InvalidCode()
	}
	if p.OwnerID == redeemerID {
		s.rejectRedeem(redeemerID, normalized, "self_pairing")
		return "", apperrors.SelfPairingNotAllowed()
	}
	if p.IsPaired() {
		s.rejectRedeem(redeemerID, normalized, "already_used")
		return "", apperrors.CodeAlreadyUsed()
	}
	if s.now().After(p.CodeExpiresAt) {
		s.rejectRedeem(redeemerID, normalized, "expired")
		return "", apperrors.CodeExpired()
	}

	claimed, err := s.partnershipRepo.ClaimPartner(ctx, p.OwnerID, redeemerID, s.now())
	if err != nil {
		return "", apperrors.StoreUnavailable(err)
	}
	// A winning claim also discards the redeemer's own unredeemed row in
	// the same store transaction, so no stale code survives pairing.
	if !claimed {
		// Lost the race: another redeemer committed between lookup and claim.
		s.rejectRedeem(redeemerID, normalized, "already_used")
		return "", apperrors.CodeAlreadyUsed()
	}

	log.Info().
		Str("ownerId", p.OwnerID).
		Str("redeemerId", redeemerID).
		Str("code", util.MaskCode(normalized)).
		Msg("pairing successful")
	audit.Log(audit.Event{Type: audit.EventCodeRedeemed, UserID: redeemerID, PartnerID: p.OwnerID})

	return p.OwnerID, nil
}

// GetPartnership resolves "am I paired, and with whom" for userID. The paired
// view is decorated with the other party's profile; profile failures degrade
// to placeholders, and store failures degrade to nil since this read only
// feeds display.
func (s *PairingService) GetPartnership(ctx context.Context, userID string) (*model.PartnershipView, error) {
	p, err := s.partnershipRepo.FindByUser(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("partnership lookup failed, degrading to none")
		return nil, nil
	}
	if p == nil {
		return nil, nil
	}

	if !p.IsPaired() {
		expiresAt := p.CodeExpiresAt
		return &model.PartnershipView{
			IsPaired:      false,
			PairingCode:   p.PairingCode,
			CodeExpiresAt: &expiresAt,
		}, nil
	}

	otherID := p.OtherParty(userID)
	view := &model.PartnershipView{
		IsPaired:     true,
		PartnerID:    otherID,
		PartnerName:  "Partner",
		PartnerEmail: "",
		PairedAt:     p.PairedAt,
	}

	profile, err := s.profileRepo.FindByID(ctx, otherID)
	if err != nil {
		log.Warn().Err(err).Str("partnerId", otherID).Msg("profile enrichment failed, using placeholders")
	} else if profile != nil {
		view.PartnerName = profile.DisplayName
		view.PartnerEmail = profile.Email
	}

	return view, nil
}

// Unlink tears the partnership down from either side. Idempotent: unlinking
// with nothing to remove is still success.
func (s *PairingService) Unlink(ctx context.Context, userID string) error {
	if err := s.partnershipRepo.DeleteByUser(ctx, userID); err != nil {
		return apperrors.StoreUnavailable(err)
	}

	log.Info().Str("userId", userID).Msg("partnership unlinked")
	audit.Log(audit.Event{Type: audit.EventUnlinked, UserID: userID})
	return nil
}

func (s *PairingService) rejectRedeem(redeemerID, code, reason string) {
	log.Warn().
		Str("redeemerId", redeemerID).
		Str("code", util.MaskCode(code)).
		Str("reason", reason).
		Msg("redeem rejected")
	audit.Log(audit.Event{
		Type:    audit.EventRedeemRejected,
		UserID:  redeemerID,
		Details: map[string]interface{}{"reason": reason},
	})
}

func generatePairingCode() (string, error) {
	chars := []byte(pairingCodeChars)
	code := make([]byte, pairingCodeLength)

	for i := 0; i < pairingCodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		code[i] = chars[n.Int64()]
	}

	return string(code), nil
}
