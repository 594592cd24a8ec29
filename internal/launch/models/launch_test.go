package models

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/Menakta/op-skillsim-sub004/pkg/domain-errors"
)

func validParams() map[string]string {
	return map[string]string{
		ParamConsumerKey:     "skillsim-key",
		ParamSignature:       "c2ln",
		ParamSignatureMethod: "HMAC-SHA1",
		ParamTimestamp:       "1736950000",
		ParamNonce:           "a1b2c3d4e5",
		ParamVersion:         "1.0",
		ParamResourceLinkID:  "course-42-module-7",
		ParamUserID:          "ext-user-9",
		ParamEmail:           "ada@example.edu",
		ParamDisplayName:     "Ada Lovelace",
		ParamContextTitle:    "Safety Training",
		ParamRoles:           "Instructor",
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, FromParams(validParams()).Validate())
}

func TestValidateMissingMandatoryFields(t *testing.T) {
	for _, name := range mandatoryParams {
		t.Run(name, func(t *testing.T) {
			params := validParams()
			delete(params, name)
			err := FromParams(params).Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestValidateRejectsOtherSignatureMethods(t *testing.T) {
	params := validParams()
	params[ParamSignatureMethod] = "RSA-SHA1"
	err := FromParams(params).Validate()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestFromForm(t *testing.T) {
	form := url.Values{}
	for k, v := range validParams() {
		form.Set(k, v)
	}
	req := FromForm(form)
	assert.Equal(t, "skillsim-key", req.ConsumerKey)
	assert.Equal(t, "a1b2c3d4e5", req.Nonce)
	assert.Equal(t, "1736950000", req.Timestamp)
	assert.Len(t, req.Params, len(validParams()))
}

func TestIdentity(t *testing.T) {
	ident := FromParams(validParams()).Identity()
	assert.Equal(t, "ext-user-9", ident.LTIUserID)
	assert.Equal(t, "ada@example.edu", ident.Email)
	assert.Equal(t, "Ada Lovelace", ident.DisplayName)
	assert.Equal(t, "Safety Training", ident.Institution)
	assert.Equal(t, "Instructor", ident.RawRoles)
}
