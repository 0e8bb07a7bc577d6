package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newOrderNumber produces a human-readable reference like GL-20260315-K7Q2XN.
// The date prefix keeps support lookups easy; the random suffix avoids
// leaking order volume. Uniqueness is enforced by the database index.
func newOrderNumber(now time.Time) string {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// fall back to a time-derived character rather than panic.
			suffix[i] = orderNumberAlphabet[int(now.UnixNano()>>uint(i*5))%len(orderNumberAlphabet)]
			continue
		}
		suffix[i] = orderNumberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("GL-%s-%s", now.UTC().Format("20060102"), suffix)
}
