package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ashwnn/forward-factor/domain"
)

// DedupeKey computes the collision-resistant signal identity:
//
//	H(ticker || front_expiry_iso || back_expiry_iso || date_of(as_of) || vol_point)
//
// It is deterministic and stable under reordering of any non-key Signal
// field (FF value, IV, quality score, reason codes never enter the hash).
func DedupeKey(ticker string, frontExpiry, backExpiry, asOf time.Time, volPoint domain.VolPoint) string {
	material := fmt.Sprintf("%s|%s|%s|%s|%s",
		ticker,
		frontExpiry.UTC().Format("2006-01-02"),
		backExpiry.UTC().Format("2006-01-02"),
		asOf.UTC().Format("2006-01-02"),
		volPoint,
	)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}
