package enums

import "fmt"

// CouponType selects how a coupon's value is applied.
type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

// IsValid reports whether the value is a known CouponType.
func (t CouponType) IsValid() bool {
	return t == CouponTypePercentage || t == CouponTypeFixed
}

// ParseCouponType converts raw input into a CouponType.
func ParseCouponType(value string) (CouponType, error) {
	switch CouponType(value) {
	case CouponTypePercentage:
		return CouponTypePercentage, nil
	case CouponTypeFixed:
		return CouponTypeFixed, nil
	}
	return "", fmt.Errorf("invalid coupon type %q", value)
}
