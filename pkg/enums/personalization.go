package enums

import "fmt"

// PersonalizationStatus tracks whether the customer has submitted the
// brief (text/image) a personalized order needs before design work.
type PersonalizationStatus string

const (
	PersonalizationStatusNone      PersonalizationStatus = "none"
	PersonalizationStatusPending   PersonalizationStatus = "pending"
	PersonalizationStatusSubmitted PersonalizationStatus = "submitted"
)

// IsValid reports whether the value is a known PersonalizationStatus.
func (s PersonalizationStatus) IsValid() bool {
	switch s {
	case PersonalizationStatusNone, PersonalizationStatusPending, PersonalizationStatusSubmitted:
		return true
	}
	return false
}

// PersonalizationKind is the resolved shape of an item's
// personalization requirement. It is fixed once at cart-line creation
// so downstream code never re-interprets partner config.
type PersonalizationKind string

const (
	PersonalizationKindNone         PersonalizationKind = "none"
	PersonalizationKindTextOnly     PersonalizationKind = "text_only"
	PersonalizationKindImageOnly    PersonalizationKind = "image_only"
	PersonalizationKindTextAndImage PersonalizationKind = "text_and_image"
	PersonalizationKindAddonDriven  PersonalizationKind = "addon_driven"
)

var validPersonalizationKinds = []PersonalizationKind{
	PersonalizationKindNone,
	PersonalizationKindTextOnly,
	PersonalizationKindImageOnly,
	PersonalizationKindTextAndImage,
	PersonalizationKindAddonDriven,
}

// IsValid reports whether the value is a known PersonalizationKind.
func (k PersonalizationKind) IsValid() bool {
	for _, candidate := range validPersonalizationKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// RequiresText reports whether the kind needs customer text.
func (k PersonalizationKind) RequiresText() bool {
	return k == PersonalizationKindTextOnly || k == PersonalizationKindTextAndImage
}

// RequiresImage reports whether the kind needs a customer image.
func (k PersonalizationKind) RequiresImage() bool {
	return k == PersonalizationKindImageOnly || k == PersonalizationKindTextAndImage
}

// ParsePersonalizationKind converts raw input into a PersonalizationKind.
func ParsePersonalizationKind(value string) (PersonalizationKind, error) {
	for _, candidate := range validPersonalizationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid personalization kind %q", value)
}
