package models

import (
	"fmt"
	"time"

	"github.com/alangunning/nomulus/pkg/platform/dates"
)

// ExtendRegistrationWithCap returns current plus min(years, cap) calendar years,
// clamping Feb 29 to Feb 28 on non-leap target years.
//
// Negative years or cap is a programming error, not an input condition, and
// panics.
func ExtendRegistrationWithCap(current time.Time, years, cap int) time.Time {
	if years < 0 {
		panic(fmt.Sprintf("models: negative extension years %d", years))
	}
	if cap < 0 {
		panic(fmt.Sprintf("models: negative extension cap %d", cap))
	}
	return dates.LeapSafeAddYears(current, min(years, cap))
}

// ExtensionPolicy bounds the expiration a transfer may produce.
type ExtensionPolicy struct {
	// MaxExtensionYears caps the years a single transfer adds.
	MaxExtensionYears int
	// RegistrationCeilingYears, when positive, also caps the result at now plus
	// this many years.
	RegistrationCeilingYears int
}

// NewExpiration applies the policy to a domain's current expiration.
func (p ExtensionPolicy) NewExpiration(now, current time.Time, years int) time.Time {
	extended := ExtendRegistrationWithCap(current, years, p.MaxExtensionYears)
	if p.RegistrationCeilingYears > 0 {
		return dates.EarliestOf(extended, dates.LeapSafeAddYears(now, p.RegistrationCeilingYears))
	}
	return extended
}
