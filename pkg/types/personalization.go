package types

import (
	"database/sql/driver"
	"encoding/json"
	"sort"
	"strings"

	"github.com/giftlane/giftlane-backend/pkg/enums"
)

// Personalization captures the customization selected on a cart line.
type Personalization struct {
	Enabled    bool    `json:"enabled"`
	OptionID   *string `json:"option_id,omitempty"`
	PriceCents int     `json:"price_cents"`
	Text       *string `json:"text,omitempty"`
	ImageURL   *string `json:"image_url,omitempty"`
}

// Key returns the dedup key component for the personalization choice.
func (p Personalization) Key() string {
	if !p.Enabled {
		return "disabled"
	}
	option := ""
	if p.OptionID != nil {
		option = *p.OptionID
	}
	return "enabled:" + option
}

// Value serializes the personalization to JSON.
func (p *Personalization) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan decodes JSONB into the personalization struct.
func (p *Personalization) Scan(value interface{}) error {
	if value == nil {
		*p = Personalization{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, p)
}

// SelectedAddon is one add-on picked on a cart line.
type SelectedAddon struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	PriceCents      int    `json:"price_cents"`
	RequiresPreview bool   `json:"requires_preview"`
}

// SelectedAddons is the add-on list persisted as JSONB.
type SelectedAddons []SelectedAddon

// SortedIDsKey returns the order-insensitive dedup key component.
func (s SelectedAddons) SortedIDsKey() string {
	ids := make([]string, 0, len(s))
	for _, addon := range s {
		ids = append(ids, addon.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// TotalCents sums the per-unit add-on charges.
func (s SelectedAddons) TotalCents() int {
	total := 0
	for _, addon := range s {
		total += addon.PriceCents
	}
	return total
}

// RequiresPreview reports whether any selected add-on needs a design preview.
func (s SelectedAddons) RequiresPreview() bool {
	for _, addon := range s {
		if addon.RequiresPreview {
			return true
		}
	}
	return false
}

// Value serializes the add-ons to JSON.
func (s SelectedAddons) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan decodes JSONB into the add-on slice.
func (s *SelectedAddons) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded SelectedAddons
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*s = decoded
	return nil
}

// PersonalizationRequirement is the tagged variant resolved once at cart-line
// creation from the item's personalization config.
type PersonalizationRequirement struct {
	Kind       enums.PersonalizationKind `json:"kind"`
	TextLimit  int                       `json:"text_limit,omitempty"`
	AddonNames []string                  `json:"addon_names,omitempty"`
}

// RequiresText reports whether a text brief must be submitted.
func (r PersonalizationRequirement) RequiresText() bool {
	return r.Kind.RequiresText()
}

// RequiresImage reports whether an image brief must be submitted.
func (r PersonalizationRequirement) RequiresImage() bool {
	return r.Kind.RequiresImage()
}

// Value serializes the requirement to JSON.
func (r *PersonalizationRequirement) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan decodes JSONB into the requirement struct.
func (r *PersonalizationRequirement) Scan(value interface{}) error {
	if value == nil {
		*r = PersonalizationRequirement{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, r)
}
