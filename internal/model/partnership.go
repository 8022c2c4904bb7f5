package model

import (
	"time"
)

// Partnership is the single durable record of a link between two users.
// A row exists once the owner has requested a pairing code; PartnerID and
// PairedAt are set exactly once, when the code is redeemed.
type Partnership struct {
	OwnerID       string     `db:"owner_id" json:"ownerId"`
	PartnerID     *string    `db:"partner_id" json:"partnerId,omitempty"`
	PairingCode   string     `db:"pairing_code" json:"pairingCode"`
	CodeExpiresAt time.Time  `db:"code_expires_at" json:"codeExpiresAt"`
	PairedAt      *time.Time `db:"paired_at" json:"pairedAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsPaired reports whether the partner slot has been claimed.
func (p *Partnership) IsPaired() bool {
	return p.PartnerID != nil
}

// OtherParty resolves the counterpart of userID within the partnership,
// regardless of which side userID is on. Returns "" if userID is not a
// participant or the row is unpaired.
func (p *Partnership) OtherParty(userID string) string {
	if p.PartnerID == nil {
		return ""
	}
	switch userID {
	case p.OwnerID:
		return *p.PartnerID
	case *p.PartnerID:
		return p.OwnerID
	}
	return ""
}

type UpsertPartnershipParams struct {
	OwnerID       string
	PairingCode   string
	CodeExpiresAt time.Time
}

// IssuedCode is what the issuer hands back for display to the user.
type IssuedCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PartnershipView is the caller-relative read model returned by the reader.
// For an unpaired owner it exposes the outstanding code; once paired it
// exposes the other party, decorated with profile data.
type PartnershipView struct {
	IsPaired      bool       `json:"isPaired"`
	PairingCode   string     `json:"pairingCode,omitempty"`
	CodeExpiresAt *time.Time `json:"codeExpiresAt,omitempty"`
	PartnerID     string     `json:"partnerId,omitempty"`
	PartnerName   string     `json:"partnerName,omitempty"`
	PartnerEmail  string     `json:"partnerEmail,omitempty"`
	PairedAt      *time.Time `json:"pairedAt,omitempty"`
}
