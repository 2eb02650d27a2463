package firestore

import (
	"context"
	"errors"
	"strings"

	"github.com/shiny-beauty/api/internal/domain"
	pfirestore "github.com/shiny-beauty/api/internal/platform/firestore"
)

const (
	loyaltyTiersCollection = "loyaltyTiers"
	usersCollection        = "users"
)

// LoyaltyRepository reads loyalty tier definitions and user membership.
type LoyaltyRepository struct {
	tiers *pfirestore.BaseRepository[loyaltyTierDocument]
	users *pfirestore.BaseRepository[userLoyaltyDocument]
}

// NewLoyaltyRepository constructs a Firestore-backed loyalty repository.
func NewLoyaltyRepository(provider *pfirestore.Provider) (*LoyaltyRepository, error) {
	if provider == nil {
		return nil, errors.New("loyalty repository: firestore provider is required")
	}
	return &LoyaltyRepository{
		tiers: pfirestore.NewBaseRepository[loyaltyTierDocument](provider, loyaltyTiersCollection, nil, nil),
		users: pfirestore.NewBaseRepository[userLoyaltyDocument](provider, usersCollection, nil, nil),
	}, nil
}

// FindTier fetches a tier definition by id.
func (r *LoyaltyRepository) FindTier(ctx context.Context, tierID string) (domain.LoyaltyTier, error) {
	if r == nil || r.tiers == nil {
		return domain.LoyaltyTier{}, errors.New("loyalty repository not initialised")
	}
	tierID = strings.TrimSpace(tierID)
	if tierID == "" {
		return domain.LoyaltyTier{}, errors.New("loyalty repository: tier id is required")
	}
	doc, err := r.tiers.Get(ctx, tierID)
	if err != nil {
		return domain.LoyaltyTier{}, err
	}
	return decodeLoyaltyTier(doc.ID, doc.Data), nil
}

// TierForUser resolves the tier attached to a user account. A user without a
// tier yields a not-found repository error.
func (r *LoyaltyRepository) TierForUser(ctx context.Context, userID string) (domain.LoyaltyTier, error) {
	if r == nil || r.users == nil {
		return domain.LoyaltyTier{}, errors.New("loyalty repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.LoyaltyTier{}, errors.New("loyalty repository: user id is required")
	}
	doc, err := r.users.Get(ctx, userID)
	if err != nil {
		return domain.LoyaltyTier{}, err
	}
	tierID := strings.TrimSpace(doc.Data.LoyaltyTierID)
	if tierID == "" {
		return domain.LoyaltyTier{}, pfirestore.NotFoundError("loyalty.tier_for_user", userID)
	}
	return r.FindTier(ctx, tierID)
}

type loyaltyTierDocument struct {
	Name     string                  `firestore:"name"`
	Benefits loyaltyBenefitsDocument `firestore:"benefits"`
}

type loyaltyBenefitsDocument struct {
	FreeShipping    bool `firestore:"freeShipping"`
	DiscountPercent int  `firestore:"discountPercent"`
}

type userLoyaltyDocument struct {
	LoyaltyTierID string `firestore:"loyaltyTierId"`
}

func decodeLoyaltyTier(id string, doc loyaltyTierDocument) domain.LoyaltyTier {
	return domain.LoyaltyTier{
		ID:   id,
		Name: doc.Name,
		Benefits: domain.LoyaltyBenefits{
			FreeShipping:    doc.Benefits.FreeShipping,
			DiscountPercent: doc.Benefits.DiscountPercent,
		},
	}
}
