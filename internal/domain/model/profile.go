package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"telegram-coin-bot/internal/domain"
)

// referralCodeLen is the number of hex characters kept from the SHA-256
// digest. 12 chars keep deep links short while staying collision-safe for
// any realistic user count.
const referralCodeLen = 12

// UserProfile is a domain entity representing a registered Telegram user.
// Balance is in whole coins (smallest unit, signed); mutations go through
// the wallet use case, never by writing fields on a shared instance.
type UserProfile struct {
	TelegramID       int64
	Username         string
	Balance          int64
	RegisteredAt     time.Time
	ReferralCode     string
	InvitedBy        string // referral code of the inviter, empty if none
	InvitedCount     int
	ReferralEarnings int64
	ReferralPercent  int
}

// ReferralCodeFor derives the stable referral code for a Telegram ID.
func ReferralCodeFor(tgID int64) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(tgID, 10)))
	return hex.EncodeToString(sum[:])[:referralCodeLen]
}

func NewUserProfile(tgID int64, username string, startingBalance int64) (*UserProfile, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if startingBalance < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &UserProfile{
		TelegramID:      tgID,
		Username:        username,
		Balance:         startingBalance,
		RegisteredAt:    time.Now(),
		ReferralCode:    ReferralCodeFor(tgID),
		ReferralPercent: DefaultReferralPercent,
	}, nil
}

// DefaultReferralPercent is the payout percent assigned at registration.
const DefaultReferralPercent = 5

func (u *UserProfile) IsZero() bool { return u == nil || u.TelegramID == 0 }
