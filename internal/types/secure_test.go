package types

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestSecretStringRedaction(t *testing.T) {
	secret := SecretString("xoxb-123-456")

	if got := secret.String(); got != redactedPlaceholder {
		t.Errorf("String() = %q, want %q", got, redactedPlaceholder)
	}
	if got := fmt.Sprintf("%v|%s|%#v", secret, secret, secret); got != "***REDACTED***|***REDACTED***|***REDACTED***" {
		t.Errorf("fmt output leaked secret: %q", got)
	}
	if got := secret.Unmask(); got != "xoxb-123-456" {
		t.Errorf("Unmask() = %q", got)
	}
}

func TestSecretStringJSON(t *testing.T) {
	payload := struct {
		Token SecretString `json:"token"`
	}{Token: "xoxb-secret"}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if string(data) != `{"token":"***REDACTED***"}` {
		t.Errorf("json = %s", data)
	}
}

func TestSecretStringIsZero(t *testing.T) {
	if !SecretString("").IsZero() {
		t.Error("empty secret should be zero")
	}
	if SecretString("x").IsZero() {
		t.Error("non-empty secret should not be zero")
	}
}
