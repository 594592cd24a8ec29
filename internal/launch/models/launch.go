// Package models defines the transient launch-request shape submitted by an
// LMS. A LaunchRequest lives only for the duration of one verification call.
package models

import (
	"fmt"
	"net/url"

	dErrors "github.com/Menakta/op-skillsim-sub004/pkg/domain-errors"
)

// Well-known LTI 1.x launch parameter names.
const (
	ParamConsumerKey     = "oauth_consumer_key"
	ParamSignature       = "oauth_signature"
	ParamSignatureMethod = "oauth_signature_method"
	ParamTimestamp       = "oauth_timestamp"
	ParamNonce           = "oauth_nonce"
	ParamVersion         = "oauth_version"
	ParamResourceLinkID  = "resource_link_id"
	ParamUserID          = "user_id"
	ParamEmail           = "lis_person_contact_email_primary"
	ParamDisplayName     = "lis_person_name_full"
	ParamContextTitle    = "context_title"
	ParamRoles           = "roles"
)

// mandatoryParams must all be present before any cryptographic work happens.
var mandatoryParams = []string{
	ParamConsumerKey,
	ParamSignature,
	ParamSignatureMethod,
	ParamTimestamp,
	ParamNonce,
	ParamVersion,
	ParamResourceLinkID,
}

// LaunchRequest is the full signed parameter set of one LMS launch.
type LaunchRequest struct {
	ConsumerKey     string
	Signature       string
	SignatureMethod string
	Timestamp       string
	Nonce           string
	Version         string
	ResourceLinkID  string

	// Params holds every submitted parameter; the signature covers all of
	// them, not just the well-known ones.
	Params map[string]string
}

// FromForm builds a LaunchRequest from a parsed form body. Multi-valued
// parameters keep their first value; LTI consumers do not send repeats.
func FromForm(form url.Values) *LaunchRequest {
	params := make(map[string]string, len(form))
	for k := range form {
		params[k] = form.Get(k)
	}
	return FromParams(params)
}

// FromParams builds a LaunchRequest from an already-flattened parameter map.
func FromParams(params map[string]string) *LaunchRequest {
	return &LaunchRequest{
		ConsumerKey:     params[ParamConsumerKey],
		Signature:       params[ParamSignature],
		SignatureMethod: params[ParamSignatureMethod],
		Timestamp:       params[ParamTimestamp],
		Nonce:           params[ParamNonce],
		Version:         params[ParamVersion],
		ResourceLinkID:  params[ParamResourceLinkID],
		Params:          params,
	}
}

// Validate checks protocol field presence. The error message names the
// missing field for server-side logging; callers collapse it before it
// reaches the network.
func (r *LaunchRequest) Validate() error {
	for _, name := range mandatoryParams {
		if r.Params[name] == "" {
			return dErrors.New(dErrors.CodeUnauthorized, fmt.Sprintf("missing %s", name))
		}
	}
	if r.SignatureMethod != "HMAC-SHA1" {
		return dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("unsupported signature method %q", r.SignatureMethod))
	}
	return nil
}

// ExternalIdentity is the identity the LMS asserts for this launch. The
// identity resolver turns it into a platform user.
type ExternalIdentity struct {
	LTIUserID   string
	Email       string
	DisplayName string
	Institution string
	RawRoles    string
}

// Identity extracts the asserted identity fields from the launch parameters.
func (r *LaunchRequest) Identity() ExternalIdentity {
	return ExternalIdentity{
		LTIUserID:   r.Params[ParamUserID],
		Email:       r.Params[ParamEmail],
		DisplayName: r.Params[ParamDisplayName],
		Institution: r.Params[ParamContextTitle],
		RawRoles:    r.Params[ParamRoles],
	}
}
