package vault

import (
	"testing"
	"time"
)

func TestValidateCredential(t *testing.T) {
	tests := []struct {
		name   string
		server string
		login  string
		secret string
		wantOK bool
	}{
		{"valid", "demo.broker.com", "12345", "Xk9#mPq2", true},
		{"server too short", "ab", "12345", "Xk9#mPq2", false},
		{"server whitespace only", "   ", "12345", "Xk9#mPq2", false},
		{"non-numeric login", "demo.broker.com", "12a45", "Xk9#mPq2", false},
		{"empty login", "demo.broker.com", "", "Xk9#mPq2", false},
		{"empty secret", "demo.broker.com", "12345", "", false},
		{"weak secret still validates", "demo.broker.com", "12345", "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := validateCredential(tt.server, tt.login, tt.secret)
			if ok != tt.wantOK {
				t.Errorf("validateCredential(%q, %q, %q) ok = %v, want %v",
					tt.server, tt.login, tt.secret, ok, tt.wantOK)
			}
		})
	}
}

func TestValidateCredentialScoring(t *testing.T) {
	// Full-marks password: length, upper, lower, digit and special
	score, ok := validateCredential("demo.broker.com", "12345", "Xk9#mPq2")
	if !ok || score != 100 {
		t.Errorf("strong secret score = %d, want 100", score)
	}

	// Short login costs 10 points
	score, ok = validateCredential("demo.broker.com", "123", "Xk9#mPq2")
	if !ok || score != 90 {
		t.Errorf("short login score = %d, want 90", score)
	}

	// Sequence and missing character classes drag the score down
	weak, ok := validateCredential("demo.broker.com", "12345", "abc")
	if !ok {
		t.Fatal("weak secret should still validate")
	}
	if weak >= 60 {
		t.Errorf("weak secret score = %d, want below medium cutoff", weak)
	}
}

func TestPasswordScore(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     int
	}{
		{"all classes at 8 chars", "Xk9#mPq2", 100},
		{"lowercase only", "mzkwplfh", 45},
		{"repeated run penalty", "Xk9#mPqqq2", 85},
		{"sequence penalty", "Xk9#mP123", 80},
		{"length bonuses capped", "XkmPwtzq9#ndLr5$", 100},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := passwordScore(tt.password)
			if got != tt.want {
				t.Errorf("passwordScore(%q) = %d, want %d", tt.password, got, tt.want)
			}
		})
	}
}

func TestSecurityLevel(t *testing.T) {
	p := DefaultPolicy()
	day := 24 * time.Hour

	tests := []struct {
		name  string
		score int
		age   time.Duration
		want  string
	}{
		{"fresh high score", 85, 0, SecurityLevelHigh},
		{"fresh medium score", 70, 0, SecurityLevelMedium},
		{"fresh low score", 40, 0, SecurityLevelLow},
		{"high score at boundary", 80, 0, SecurityLevelHigh},
		{"medium score at boundary", 60, 0, SecurityLevelMedium},
		{"high score half-aged drops to medium", 85, 46 * day, SecurityLevelMedium},
		{"medium score half-aged drops to low", 70, 46 * day, SecurityLevelLow},
		{"high score past rotation is low", 95, 91 * day, SecurityLevelLow},
		{"exactly at rotation age is low", 95, 90 * day, SecurityLevelLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.securityLevel(tt.score, tt.age)
			if got != tt.want {
				t.Errorf("securityLevel(%d, %v) = %q, want %q", tt.score, tt.age, got, tt.want)
			}
		})
	}
}

func TestRotationRequired(t *testing.T) {
	p := DefaultPolicy()
	if p.rotationRequired(89 * 24 * time.Hour) {
		t.Error("secret under the threshold should not require rotation")
	}
	if !p.rotationRequired(90 * 24 * time.Hour) {
		t.Error("secret at the threshold should require rotation")
	}
}
