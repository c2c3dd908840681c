package credentials

import (
	"errors"
	"testing"

	"github.com/wildspark/arena/internal/roomerrors"
)

func validHandshake() map[string]string {
	return map[string]string{
		"assetId":              "asset-1",
		"visitorId":            "42",
		"urlSlug":              "slug",
		"interactiveNonce":     "nonce",
		"interactivePublicKey": "pubkey",
		"sceneDropId":          "drop-1",
		"identityId":           "identity-1",
		"profileId":            "profile-1",
		"uniqueName":           "unique",
		"username":             "user",
		"displayName":          "Display Name",
	}
}

func TestParseValid(t *testing.T) {
	c, err := Parse(validHandshake())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.VisitorID != 42 {
		t.Fatalf("expected visitorId 42, got %d", c.VisitorID)
	}
	if c.SceneDropID != "drop-1" {
		t.Fatalf("expected sceneDropId drop-1, got %s", c.SceneDropID)
	}
}

func TestParseMissingField(t *testing.T) {
	h := validHandshake()
	delete(h, "uniqueName")
	_, err := Parse(h)
	if err == nil {
		t.Fatal("expected error for missing field")
	}
	if !errors.Is(err, roomerrors.Credential) {
		t.Fatalf("expected credential error kind, got %v", err)
	}
}

func TestParseBadVisitorID(t *testing.T) {
	h := validHandshake()
	h["visitorId"] = "not-a-number"
	_, err := Parse(h)
	if err == nil {
		t.Fatal("expected error for non-integer visitorId")
	}
	if !errors.Is(err, roomerrors.Credential) {
		t.Fatalf("expected credential error kind, got %v", err)
	}
}

func TestDefaultRoomID(t *testing.T) {
	c, _ := Parse(validHandshake())
	id := DefaultRoomID("mygame", c)
	if id != "mygame:drop-1" {
		t.Fatalf("unexpected room id: %s", id)
	}
}
