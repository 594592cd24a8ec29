package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testURL    = "https://lms.example.edu/lti/launch"
	testSecret = "training-secret"
)

func launchParams() map[string]string {
	return map[string]string{
		"oauth_consumer_key":               "skillsim-key",
		"oauth_nonce":                      "a1b2c3d4e5",
		"oauth_signature_method":           "HMAC-SHA1",
		"oauth_timestamp":                  "1736950000",
		"oauth_version":                    "1.0",
		"resource_link_id":                 "course-42-module-7",
		"user_id":                          "ext-user-9",
		"lis_person_contact_email_primary": "ada@example.edu",
		"lis_person_name_full":             "Ada Lovelace",
		"roles":                            "Instructor",
		"context_title":                    "Safety Training",
	}
}

// Reference vector produced by an independent OAuth 1.0a implementation.
func TestSignMatchesReferenceVector(t *testing.T) {
	sig, err := Sign("POST", testURL, launchParams(), testSecret)
	require.NoError(t, err)
	assert.Equal(t, "0NOvdckMTgZ1yE0JMrQlKu73MHE=", sig)
}

func TestSignMinimalReferenceVector(t *testing.T) {
	params := map[string]string{
		"oauth_consumer_key":     "k",
		"oauth_nonce":            "n",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1",
		"oauth_version":          "1.0",
		"resource_link_id":       "r",
	}
	sig, err := Sign("POST", "http://localhost:8080/lti/launch", params, "s")
	require.NoError(t, err)
	assert.Equal(t, "MnQk1ydv7COg8Rir2ujLxxWRzZU=", sig)
}

func TestBaseString(t *testing.T) {
	base, err := BaseString("post", testURL+"?extra=ignored", launchParams())
	require.NoError(t, err)

	want := "POST&https%3A%2F%2Flms.example.edu%2Flti%2Flaunch&" +
		"context_title%3DSafety%2520Training" +
		"%26lis_person_contact_email_primary%3Dada%2540example.edu" +
		"%26lis_person_name_full%3DAda%2520Lovelace" +
		"%26oauth_consumer_key%3Dskillsim-key" +
		"%26oauth_nonce%3Da1b2c3d4e5" +
		"%26oauth_signature_method%3DHMAC-SHA1" +
		"%26oauth_timestamp%3D1736950000" +
		"%26oauth_version%3D1.0" +
		"%26resource_link_id%3Dcourse-42-module-7" +
		"%26roles%3DInstructor" +
		"%26user_id%3Dext-user-9"
	assert.Equal(t, want, base)
}

func TestVerifyRoundTrip(t *testing.T) {
	params := launchParams()
	sig, err := Sign("POST", testURL, params, testSecret)
	require.NoError(t, err)
	params[ParamSignature] = sig

	assert.NoError(t, Verify("POST", testURL, params, testSecret))
}

// Mutating any single signed parameter, or the method, must invalidate the
// signature.
func TestVerifyMutationMatrix(t *testing.T) {
	signed := launchParams()
	sig, err := Sign("POST", testURL, signed, testSecret)
	require.NoError(t, err)
	signed[ParamSignature] = sig

	for key := range launchParams() {
		t.Run("mutate "+key, func(t *testing.T) {
			params := launchParams()
			params[ParamSignature] = sig
			params[key] = params[key] + "x"
			assert.ErrorIs(t, Verify("POST", testURL, params, testSecret), ErrMismatch)
		})
	}

	t.Run("mutate method", func(t *testing.T) {
		params := launchParams()
		params[ParamSignature] = sig
		assert.ErrorIs(t, Verify("GET", testURL, params, testSecret), ErrMismatch)
	})

	t.Run("mutate secret", func(t *testing.T) {
		params := launchParams()
		params[ParamSignature] = sig
		assert.ErrorIs(t, Verify("POST", testURL, params, "other-secret"), ErrMismatch)
	})

	t.Run("added parameter", func(t *testing.T) {
		params := launchParams()
		params[ParamSignature] = sig
		params["custom_injected"] = "1"
		assert.ErrorIs(t, Verify("POST", testURL, params, testSecret), ErrMismatch)
	})
}

func TestVerifyMissingSignature(t *testing.T) {
	assert.ErrorIs(t, Verify("POST", testURL, launchParams(), testSecret), ErrMismatch)
}

// Empty-valued parameters are excluded from the base string entirely, so a
// signer that omitted them and a verifier that received them agree.
func TestEmptyValuesExcluded(t *testing.T) {
	params := launchParams()
	sig, err := Sign("POST", testURL, params, testSecret)
	require.NoError(t, err)

	params["launch_presentation_locale"] = ""
	sig2, err := Sign("POST", testURL, params, testSecret)
	require.NoError(t, err)
	assert.Equal(t, sig, sig2)
}

func TestBaseURLNormalization(t *testing.T) {
	params := launchParams()

	sig, err := Sign("POST", "HTTPS://LMS.Example.edu:443/lti/launch", params, testSecret)
	require.NoError(t, err)
	want, err := Sign("POST", testURL, params, testSecret)
	require.NoError(t, err)
	assert.Equal(t, want, sig, "default port and case must normalize away")

	_, err = Sign("POST", "/lti/launch", params, testSecret)
	assert.Error(t, err, "relative URLs are rejected")
}

func TestPercentEncode(t *testing.T) {
	cases := map[string]string{
		"abcXYZ019-._~": "abcXYZ019-._~",
		"a b":           "a%20b",
		"a+b":           "a%2Bb",
		"!*'()":         "%21%2A%27%28%29",
		"é":             "%C3%A9",
		"k=v&x":         "k%3Dv%26x",
	}
	for in, want := range cases {
		assert.Equal(t, want, percentEncode(in), "input %q", in)
	}
}

// The sort happens on encoded keys, not raw keys. Raw order puts "xA" before
// "x[" ('A' 0x41 < '[' 0x5B), but "x[" encodes to "x%5B" which sorts before
// "xA" ('%' 0x25 < 'A'). A compliant signer produces the encoded order.
func TestSortOnEncodedKeys(t *testing.T) {
	params := map[string]string{
		"oauth_consumer_key":     "k",
		"oauth_nonce":            "n",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1",
		"oauth_version":          "1.0",
		"resource_link_id":       "r",
		"xA":                     "1",
		"x[":                     "2",
	}
	base, err := BaseString("POST", testURL, params)
	require.NoError(t, err)
	assert.Contains(t, base, "x%255B%3D2%26xA%3D1")
}
