// Package credentials parses a handshake/query map into a Credentials
// record. Pure function, no network side effects; authentication of the
// embedding host is out of scope (spec.md Non-goals) — values are parsed,
// not verified.
package credentials

import (
	"fmt"
	"strconv"

	"github.com/wildspark/arena/internal/roomerrors"
)

// Credentials is the eleven-field identity bundle a handshake carries
// (spec.md §6).
type Credentials struct {
	AssetID              string
	VisitorID            int64
	URLSlug              string
	InteractiveNonce     string
	InteractivePublicKey string
	SceneDropID          string
	IdentityID           string
	ProfileID            string
	UniqueName           string
	Username             string
	DisplayName          string
}

var requiredKeys = []string{
	"assetId", "visitorId", "urlSlug", "interactiveNonce",
	"interactivePublicKey", "sceneDropId", "identityId", "profileId",
	"uniqueName", "username", "displayName",
}

// Parse builds a Credentials from an untyped handshake map, failing loudly
// (a *roomerrors.Error of KindCredential) when any required field is
// absent, and casting visitorId to an integer.
func Parse(handshake map[string]string) (*Credentials, error) {
	for _, key := range requiredKeys {
		if v, ok := handshake[key]; !ok || v == "" {
			return nil, roomerrors.New(roomerrors.KindCredential, "", "",
				fmt.Errorf("missing required credential field %q", key))
		}
	}

	visitorID, err := strconv.ParseInt(handshake["visitorId"], 10, 64)
	if err != nil {
		return nil, roomerrors.New(roomerrors.KindCredential, "", "",
			fmt.Errorf("visitorId must be an integer, got %q: %w", handshake["visitorId"], err))
	}

	return &Credentials{
		AssetID:              handshake["assetId"],
		VisitorID:            visitorID,
		URLSlug:              handshake["urlSlug"],
		InteractiveNonce:     handshake["interactiveNonce"],
		InteractivePublicKey: handshake["interactivePublicKey"],
		SceneDropID:          handshake["sceneDropId"],
		IdentityID:           handshake["identityId"],
		ProfileID:            handshake["profileId"],
		UniqueName:           handshake["uniqueName"],
		Username:             handshake["username"],
		DisplayName:          handshake["displayName"],
	}, nil
}

// DefaultRoomID returns "{gameName}:{sceneDropId}" (spec.md §6). A game may
// override room identity with its own pure function of
// {urlSlug, sceneDropId}.
func DefaultRoomID(gameName string, c *Credentials) string {
	return fmt.Sprintf("%s:%s", gameName, c.SceneDropID)
}
