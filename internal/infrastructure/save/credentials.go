package save

import (
	"github.com/pannpers/go-apperr/apperr/codes"

	"github.com/liverty-music/backend/internal/apperrx"
)

// Credentials carries exactly one of the auth shapes spec.md §4.2.1
// recognizes: an official session token, or one of three external-
// identity shapes.
type Credentials struct {
	SessionToken string `json:"sessionToken,omitempty"`

	Platform   string `json:"platform,omitempty"`
	PlatformID string `json:"platformId,omitempty"`

	ExternalSessionToken string `json:"sessiontoken,omitempty"`

	APIUserID string `json:"apiUserId,omitempty"`
	APIToken  string `json:"apiToken,omitempty"`
}

// Validate enforces spec.md §4.2.1: "A request carries exactly one of:
// official sessionToken, or externalCredentials containing one valid
// shape ... Fails with InvalidCredentials otherwise."
func (c Credentials) Validate() error {
	shapes := 0
	if c.SessionToken != "" {
		shapes++
	}
	if c.Platform != "" || c.PlatformID != "" {
		if c.Platform == "" || c.PlatformID == "" {
			return apperrx.New(codes.InvalidArgument, "MissingField", "platform and platformId must both be present")
		}
		shapes++
	}
	if c.ExternalSessionToken != "" {
		shapes++
	}
	if c.APIUserID != "" {
		shapes++
	}

	if shapes != 1 {
		return apperrx.New(codes.InvalidArgument, "InvalidCredentials", "exactly one credential shape must be supplied")
	}
	return nil
}
