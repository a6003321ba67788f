package helpers

import (
	"fmt"
	"time"
)

// FormatPercent renders a fraction (e.g. 0.2637) as a signed percentage
// string with two decimal places ("+26.37%").
func FormatPercent(fraction float64) string {
	return fmt.Sprintf("%+.2f%%", fraction*100)
}

// FormatFF renders a forward factor value to four decimal places, the
// precision used throughout notification bodies and logs.
func FormatFF(ff float64) string {
	return fmt.Sprintf("%.4f", ff)
}

// FormatAlert builds the human-readable summary line for a Forward Factor
// notification, in the same single-sentence emoji-prefixed style the
// webhook payloads previously used for whale alerts.
func FormatAlert(ticker string, front, back time.Time, ff, threshold float64) string {
	return fmt.Sprintf("📈 FF ALERT! %s %s/%s | FF: %s (threshold %s)",
		ticker,
		front.Format("2006-01-02"),
		back.Format("2006-01-02"),
		FormatFF(ff),
		FormatFF(threshold),
	)
}
