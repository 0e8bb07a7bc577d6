package cart

import (
	"context"
	"fmt"

	"github.com/giftlane/giftlane-backend/internal/catalog"
	"github.com/giftlane/giftlane-backend/internal/reservation"
	"github.com/giftlane/giftlane-backend/internal/stock"
	"github.com/giftlane/giftlane-backend/pkg/config"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/giftlane/giftlane-backend/pkg/logger"
	"github.com/giftlane/giftlane-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart aggregate operations. Every mutation that touches
// a line's quantity or unit also refreshes the line's stock reservation
// in the same transaction.
type Service interface {
	GetCart(ctx context.Context, owner Owner) ([]models.CartLine, error)
	AddLine(ctx context.Context, owner Owner, input AddLineInput) (*models.CartLine, error)
	UpdateLineQuantity(ctx context.Context, owner Owner, lineID uuid.UUID, qty int) (*models.CartLine, error)
	UpdateLine(ctx context.Context, owner Owner, lineID uuid.UUID, input UpdateLineInput) (*models.CartLine, error)
	RemoveLine(ctx context.Context, owner Owner, lineID uuid.UUID) error
	Clear(ctx context.Context, owner Owner) error
	ClearTx(ctx context.Context, tx *gorm.DB, owner Owner) error
	Merge(ctx context.Context, sessionID string, userID uuid.UUID) error
}

// AddLineInput carries the client's selection. Prices are resolved from
// catalog rows, never taken from the payload.
type AddLineInput struct {
	ItemID          uuid.UUID
	VariantID       *uuid.UUID
	Quantity        int
	Personalization PersonalizationInput
	AddonIDs        []uuid.UUID
}

// UpdateLineInput edits a line's variant, personalization, or add-ons.
type UpdateLineInput struct {
	VariantID       *uuid.UUID
	Personalization PersonalizationInput
	AddonIDs        []uuid.UUID
}

// PersonalizationInput is the customer's customization choice.
type PersonalizationInput struct {
	Enabled  bool
	OptionID *string
	Text     *string
	ImageURL *string
}

type service struct {
	repo         *Repository
	tx           txRunner
	catalog      *catalog.Repository
	reservations reservation.Service
	maxQty       int
	log          *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, catalogRepo *catalog.Repository, reservations reservation.Service, cfg config.CheckoutConfig, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if reservations == nil {
		return nil, fmt.Errorf("reservation service required")
	}
	if cfg.MaxLineQuantity <= 0 {
		return nil, fmt.Errorf("max line quantity must be positive")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:         repo,
		tx:           tx,
		catalog:      catalogRepo,
		reservations: reservations,
		maxQty:       cfg.MaxLineQuantity,
		log:          log,
	}, nil
}

// GetCart lists the owner's lines.
func (s *service) GetCart(ctx context.Context, owner Owner) ([]models.CartLine, error) {
	if err := owner.Validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	lines, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
	}
	return lines, nil
}

// AddLine validates the selection against the catalog, coalesces it into
// an existing identical line when one exists, and reserves stock.
func (s *service) AddLine(ctx context.Context, owner Owner, input AddLineInput) (*models.CartLine, error) {
	if err := owner.Validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	qty := input.Quantity
	if qty > s.maxQty {
		qty = s.maxQty
	}

	resolved, err := s.resolveSelection(ctx, input.ItemID, input.VariantID, input.Personalization, input.AddonIDs)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
	}
	if len(existing) > 0 && existing[0].PartnerID != resolved.item.PartnerID {
		return nil, pkgerrors.New(pkgerrors.CodePartnerMismatch, "cart holds items from a different partner").
			WithDetails(map[string]any{"requires_cart_clear": true})
	}

	dedupKey := DedupKey(input.ItemID, input.VariantID, resolved.personalization, resolved.addons)
	ref := stock.UnitRef{ItemID: input.ItemID, VariantKey: variantKey(input.VariantID)}

	var line *models.CartLine
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		duplicate, err := repo.FindByDedupKey(ctx, owner, dedupKey)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find duplicate cart line")
		}
		if duplicate != nil {
			merged := duplicate.Quantity + qty
			if merged > s.maxQty {
				merged = s.maxQty
			}
			if err := s.reservations.ReserveTx(ctx, tx, duplicate.ID, ref, merged); err != nil {
				return err
			}
			if err := repo.UpdateQuantity(ctx, duplicate.ID, merged); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line quantity")
			}
			duplicate.Quantity = merged
			line = duplicate
			return nil
		}

		created := &models.CartLine{
			ID:              uuid.New(),
			UserID:          owner.UserID,
			SessionID:       owner.SessionID,
			PartnerID:       resolved.item.PartnerID,
			ItemID:          input.ItemID,
			VariantID:       input.VariantID,
			Quantity:        qty,
			Personalization: resolved.personalization,
			SelectedAddons:  resolved.addons,
			Requirement:     resolved.requirement,
			DedupKey:        dedupKey,
		}
		if err := s.reservations.ReserveTx(ctx, tx, created.ID, ref, qty); err != nil {
			return err
		}
		if err := repo.Create(ctx, created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
		}
		line = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateLineQuantity clamps to [0,10]; zero removes the line and its
// reservation. Increases are checked against availability net of the
// line's own existing hold.
func (s *service) UpdateLineQuantity(ctx context.Context, owner Owner, lineID uuid.UUID, qty int) (*models.CartLine, error) {
	if err := owner.Validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if qty < 0 {
		qty = 0
	}
	if qty > s.maxQty {
		qty = s.maxQty
	}

	line, err := s.repo.GetByID(ctx, owner, lineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}

	if qty == 0 {
		if err := s.removeLineTx(ctx, lineID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	ref := stock.UnitRef{ItemID: line.ItemID, VariantKey: line.VariantKey()}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.reservations.ReserveTx(ctx, tx, line.ID, ref, qty); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).UpdateQuantity(ctx, line.ID, qty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line quantity")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	line.Quantity = qty
	return line, nil
}

// UpdateLine edits variant, personalization, or add-ons in place and
// refreshes the reservation against the (possibly different) stock unit.
// When the edit makes the line identical to another existing line, the
// two coalesce into the edited line.
func (s *service) UpdateLine(ctx context.Context, owner Owner, lineID uuid.UUID, input UpdateLineInput) (*models.CartLine, error) {
	if err := owner.Validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	line, err := s.repo.GetByID(ctx, owner, lineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}

	resolved, err := s.resolveSelection(ctx, line.ItemID, input.VariantID, input.Personalization, input.AddonIDs)
	if err != nil {
		return nil, err
	}

	dedupKey := DedupKey(line.ItemID, input.VariantID, resolved.personalization, resolved.addons)
	ref := stock.UnitRef{ItemID: line.ItemID, VariantKey: variantKey(input.VariantID)}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		qty := line.Quantity
		duplicate, err := repo.FindByDedupKey(ctx, owner, dedupKey)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find duplicate cart line")
		}
		if duplicate != nil && duplicate.ID != line.ID {
			qty += duplicate.Quantity
			if qty > s.maxQty {
				qty = s.maxQty
			}
			if err := reservation.NewRepository(tx).DeleteByCartLine(ctx, duplicate.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release coalesced reservation")
			}
			if err := repo.Delete(ctx, duplicate.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete coalesced cart line")
			}
		}

		if err := s.reservations.ReserveTx(ctx, tx, line.ID, ref, qty); err != nil {
			return err
		}

		line.VariantID = input.VariantID
		line.Personalization = resolved.personalization
		line.SelectedAddons = resolved.addons
		line.Requirement = resolved.requirement
		line.DedupKey = dedupKey
		line.Quantity = qty
		if err := repo.Save(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// RemoveLine deletes a line and releases its reservation.
func (s *service) RemoveLine(ctx context.Context, owner Owner, lineID uuid.UUID) error {
	if err := owner.Validate(); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	line, err := s.repo.GetByID(ctx, owner, lineID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}
	if line == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return s.removeLineTx(ctx, lineID)
}

// Clear drops every line and reservation the owner holds.
func (s *service) Clear(ctx context.Context, owner Owner) error {
	if err := owner.Validate(); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.clearTx(ctx, tx, owner)
	})
}

// ClearTx is Clear bound to a caller-owned transaction, used by order
// placement so the cart empties atomically with order creation.
func (s *service) ClearTx(ctx context.Context, tx *gorm.DB, owner Owner) error {
	return s.clearTx(ctx, tx, owner)
}

func (s *service) clearTx(ctx context.Context, tx *gorm.DB, owner Owner) error {
	ids, err := s.repo.WithTx(tx).DeleteByOwner(ctx, owner)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart lines")
	}
	if err := reservation.NewRepository(tx).DeleteByCartLines(ctx, ids); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release cart reservations")
	}
	return nil
}

// Merge re-owns every guest-session line to the authenticated user,
// coalescing duplicates against the user's existing lines. Calling it
// again with the same session is a no-op: the guest scope is empty.
func (s *service) Merge(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	guest := SessionOwner(sessionID)
	user := UserOwner(userID)

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		guestLines, err := repo.ListByOwner(ctx, guest)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list guest cart lines")
		}
		if len(guestLines) == 0 {
			return nil
		}

		userLines, err := repo.ListByOwner(ctx, user)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list user cart lines")
		}
		byDedup := make(map[string]*models.CartLine, len(userLines))
		for i := range userLines {
			byDedup[userLines[i].DedupKey] = &userLines[i]
		}
		userPartner := uuid.Nil
		if len(userLines) > 0 {
			userPartner = userLines[0].PartnerID
		}

		for i := range guestLines {
			guestLine := &guestLines[i]

			// When the two carts reference different partners, the
			// user's existing cart wins and the guest line is dropped.
			if userPartner != uuid.Nil && guestLine.PartnerID != userPartner {
				if err := reservation.NewRepository(tx).DeleteByCartLine(ctx, guestLine.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release guest reservation")
				}
				if err := repo.Delete(ctx, guestLine.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop mismatched guest line")
				}
				s.log.Warn(s.log.WithFields(ctx, map[string]any{
					"cart_line_id": guestLine.ID.String(),
					"partner_id":   guestLine.PartnerID.String(),
				}), "guest cart line dropped on merge")
				continue
			}

			target, ok := byDedup[guestLine.DedupKey]
			if !ok {
				if err := repo.ReassignToUser(ctx, guestLine.ID, userID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reassign guest cart line")
				}
				if userPartner == uuid.Nil {
					userPartner = guestLine.PartnerID
				}
				guestLine.UserID = &userID
				guestLine.SessionID = nil
				byDedup[guestLine.DedupKey] = guestLine
				continue
			}

			merged := target.Quantity + guestLine.Quantity
			if merged > s.maxQty {
				merged = s.maxQty
			}
			if err := reservation.NewRepository(tx).DeleteByCartLine(ctx, guestLine.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release guest reservation")
			}
			if err := repo.Delete(ctx, guestLine.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete merged guest line")
			}

			ref := stock.UnitRef{ItemID: target.ItemID, VariantKey: target.VariantKey()}
			err := s.reservations.ReserveTx(ctx, tx, target.ID, ref, merged)
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeOutOfStock {
				// Keep the coalesced quantity; checkout re-validates
				// availability before placement.
				s.log.Warn(s.log.WithFields(ctx, map[string]any{
					"cart_line_id": target.ID.String(),
					"quantity":     merged,
				}), "merged cart line exceeds available stock")
			} else if err != nil {
				return err
			}
			if err := repo.UpdateQuantity(ctx, target.ID, merged); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update merged line quantity")
			}
			target.Quantity = merged
		}
		return nil
	})
}

func (s *service) removeLineTx(ctx context.Context, lineID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := reservation.NewRepository(tx).DeleteByCartLine(ctx, lineID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release reservation")
		}
		if err := s.repo.WithTx(tx).Delete(ctx, lineID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
		}
		return nil
	})
}

type resolvedSelection struct {
	item            *models.GiftItem
	personalization types.Personalization
	addons          types.SelectedAddons
	requirement     *types.PersonalizationRequirement
}

// resolveSelection validates the client's choice against active catalog
// rows and snapshots authoritative prices onto the line.
func (s *service) resolveSelection(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID, p PersonalizationInput, addonIDs []uuid.UUID) (*resolvedSelection, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load gift item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gift item not found")
	}
	if item.HasVariants && variantID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeVariantRequired, "item requires a variant selection")
	}
	if !item.HasVariants && variantID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item does not offer variants")
	}
	if variantID != nil {
		variant, err := s.catalog.GetVariant(ctx, itemID, *variantID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item variant")
		}
		if variant == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item variant not found")
		}
	}

	addonRows, err := s.catalog.GetAddons(ctx, itemID, addonIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item add-ons")
	}
	if len(addonRows) != len(addonIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "one or more add-ons are unavailable")
	}
	addons := make(types.SelectedAddons, 0, len(addonRows))
	for _, row := range addonRows {
		addons = append(addons, types.SelectedAddon{
			ID:              row.ID.String(),
			Name:            row.Name,
			PriceCents:      row.PriceCents,
			RequiresPreview: row.RequiresPreview,
		})
	}

	requirement := resolveRequirement(item, addons)
	personalization := types.Personalization{
		Enabled:  p.Enabled,
		OptionID: p.OptionID,
		Text:     p.Text,
		ImageURL: p.ImageURL,
	}
	if p.Enabled {
		if item.PersonalizationKind == enums.PersonalizationKindNone && !addons.RequiresPreview() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item does not support personalization")
		}
		personalization.PriceCents = item.PersonalizationCents
		if p.Text != nil && requirement.TextLimit > 0 && len([]rune(*p.Text)) > requirement.TextLimit {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("personalization text exceeds %d characters", requirement.TextLimit))
		}
	}

	return &resolvedSelection{
		item:            item,
		personalization: personalization,
		addons:          addons,
		requirement:     requirement,
	}, nil
}

// resolveRequirement collapses the item's personalization config into
// the tagged form stored on the line, so later stages never re-interpret
// catalog shapes.
func resolveRequirement(item *models.GiftItem, addons types.SelectedAddons) *types.PersonalizationRequirement {
	if item.Requirement != nil {
		copied := *item.Requirement
		return &copied
	}
	if item.PersonalizationKind == enums.PersonalizationKindNone {
		if !addons.RequiresPreview() {
			return &types.PersonalizationRequirement{Kind: enums.PersonalizationKindNone}
		}
		names := make([]string, 0, len(addons))
		for _, addon := range addons {
			if addon.RequiresPreview {
				names = append(names, addon.Name)
			}
		}
		return &types.PersonalizationRequirement{
			Kind:       enums.PersonalizationKindAddonDriven,
			AddonNames: names,
		}
	}
	return &types.PersonalizationRequirement{
		Kind:      item.PersonalizationKind,
		TextLimit: item.TextLimit,
	}
}

func variantKey(variantID *uuid.UUID) string {
	if variantID == nil {
		return ""
	}
	return variantID.String()
}
