package vault

import (
	"regexp"
	"strings"
	"time"
)

// Policy holds the configurable security-level and rotation thresholds.
// These are policy knobs, not protocol constants.
type Policy struct {
	// RotationMaxAge is how long a secret may live before rotation is
	// required and the security level starts degrading.
	RotationMaxAge time.Duration

	// HighScore and MediumScore are the validation-score cutoffs for the
	// high and medium tiers.
	HighScore   int
	MediumScore int
}

// DefaultPolicy returns the standard thresholds
func DefaultPolicy() Policy {
	return Policy{
		RotationMaxAge: 90 * 24 * time.Hour,
		HighScore:      80,
		MediumScore:    60,
	}
}

// Security levels
const (
	SecurityLevelHigh   = "high"
	SecurityLevelMedium = "medium"
	SecurityLevelLow    = "low"
)

var (
	loginPattern    = regexp.MustCompile(`^\d+$`)
	repeatedPattern = regexp.MustCompile(`(.)\1{2,}`)
	sequencePattern = regexp.MustCompile(`(?i)123|abc|qwe`)
)

// validateCredential checks required fields and scores the secret's
// strength. A zero-length server, non-numeric login or empty secret fails
// validation outright.
func validateCredential(server, login, secret string) (score int, ok bool) {
	score = 100

	if len(strings.TrimSpace(server)) < 3 {
		return 0, false
	}
	if !loginPattern.MatchString(login) {
		return 0, false
	}
	if secret == "" {
		return 0, false
	}

	score -= 100 - passwordScore(secret)
	if len(login) < 5 {
		score -= 10
	}
	if score < 0 {
		score = 0
	}
	return score, true
}

func passwordScore(password string) int {
	score := 0

	if len(password) >= 8 {
		score += 25
	}
	if strings.IndexFunc(password, isUpper) >= 0 {
		score += 20
	}
	if strings.IndexFunc(password, isLower) >= 0 {
		score += 20
	}
	if strings.IndexFunc(password, isDigit) >= 0 {
		score += 15
	}
	if strings.ContainsAny(password, "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?") {
		score += 20
	}
	if len(password) >= 12 {
		score += 10
	}
	if len(password) >= 16 {
		score += 10
	}
	if repeatedPattern.MatchString(password) {
		score -= 15
	}
	if sequencePattern.MatchString(password) {
		score -= 20
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// securityLevel maps a validation score to a tier, degraded by secret age.
// A secret past the rotation threshold can never rank above low; one past
// half the threshold loses a tier. Recomputed on every read so the level
// tracks age without background jobs.
func (p Policy) securityLevel(score int, secretAge time.Duration) string {
	switch {
	case secretAge >= p.RotationMaxAge:
		return SecurityLevelLow
	case secretAge >= p.RotationMaxAge/2:
		if score >= p.HighScore {
			return SecurityLevelMedium
		}
		return SecurityLevelLow
	case score >= p.HighScore:
		return SecurityLevelHigh
	case score >= p.MediumScore:
		return SecurityLevelMedium
	default:
		return SecurityLevelLow
	}
}

// rotationRequired reports whether a secret of the given age has exceeded
// the rotation threshold
func (p Policy) rotationRequired(secretAge time.Duration) bool {
	return secretAge >= p.RotationMaxAge
}
