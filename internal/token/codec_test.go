package token

import (
	"strings"
	"testing"
	"time"
)

func TestIssueVerify(t *testing.T) {
	c := NewCodec("test-secret")

	tok := c.Issue("class-42")
	got, err := c.Verify(tok, DefaultMaxAge)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != "class-42" {
		t.Errorf("Verify() = %q, want %q", got, "class-42")
	}
}

func TestVerifyExpiry(t *testing.T) {
	c := NewCodec("test-secret")
	issued := time.Now()

	nowFunc = func() time.Time { return issued }
	tok := c.Issue("class-42")

	tests := []struct {
		name    string
		at      time.Time
		wantErr bool
	}{
		{name: "just inside window", at: issued.Add(299 * time.Second)},
		{name: "just past window", at: issued.Add(301 * time.Second), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nowFunc = func() time.Time { return tt.at }
			defer func() { nowFunc = time.Now }()

			_, err := c.Verify(tok, 300*time.Second)
			if (err != nil) != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	nowFunc = time.Now
}

func TestVerifyTampering(t *testing.T) {
	c := NewCodec("test-secret")
	tok := c.Issue("class-42")

	// flip one byte at every position; all must fail cleanly
	for i := 0; i < len(tok); i++ {
		mutated := []byte(tok)
		mutated[i] ^= 0x01
		if _, err := c.Verify(string(mutated), DefaultMaxAge); err == nil {
			t.Errorf("Verify() accepted token tampered at byte %d", i)
		}
	}
}

func TestVerifyGarbage(t *testing.T) {
	c := NewCodec("test-secret")

	tests := []struct {
		name string
		tok  string
	}{
		{name: "empty", tok: ""},
		{name: "no separator", tok: "lmaooolol"},
		{name: "bad base64", tok: "!!!.!!!"},
		{name: "wrong secret", tok: NewCodec("other-secret").Issue("class-42")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Verify(tt.tok, DefaultMaxAge); err == nil {
				t.Errorf("Verify(%q) succeeded, want error", tt.tok)
			}
		})
	}
}

func TestVerifyMaxAgeRequired(t *testing.T) {
	c := NewCodec("test-secret")
	tok := c.Issue("class-42")

	for _, maxAge := range []time.Duration{0, -time.Minute} {
		if _, err := c.Verify(tok, maxAge); err == nil {
			t.Errorf("Verify() with maxAge %v succeeded, want caller error", maxAge)
		}
	}
}

func TestTokenIsURLSafe(t *testing.T) {
	c := NewCodec("test-secret")
	tok := c.Issue("class-42")
	if strings.ContainsAny(tok, "+/= &?") {
		t.Errorf("token %q contains characters unsafe for a query string", tok)
	}
}
