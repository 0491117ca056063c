package report

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/nadmax/modreport/internal/outcome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "s3cret"

func assertValidation(t *testing.T, err error, message string) {
	t.Helper()

	var verr *outcome.ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	assert.Equal(t, message, verr.Message)
}

func TestValidate_Token(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "wrong token", token: "nope"},
		{name: "prefix of secret", token: "s3cre"},
		{name: "secret with suffix", token: "s3cret "},
	}

	for _, variant := range []outcome.Variant{outcome.VariantCounts, outcome.VariantLatency} {
		for _, tt := range tests {
			t.Run(variant.String()+"/"+tt.name, func(t *testing.T) {
				p := Params{Token: tt.token}

				_, err := p.Validate(variant, secret)
				assert.ErrorIs(t, err, outcome.ErrUnauthorized)
			})
		}
	}
}

func TestAuthorize_EmptySecret(t *testing.T) {
	assert.ErrorIs(t, Authorize("", ""), outcome.ErrUnauthorized)
	assert.NoError(t, Authorize(secret, secret))
}

func TestValidate_Counts(t *testing.T) {
	t.Run("client missing", func(t *testing.T) {
		_, err := Params{Token: secret, Date: "2024-01-02"}.Validate(outcome.VariantCounts, secret)
		assertValidation(t, err, MsgClientRequired)
	})

	t.Run("provider does not replace client", func(t *testing.T) {
		_, err := Params{Token: secret, Provider: "p1", Date: "2024-01-02"}.Validate(outcome.VariantCounts, secret)
		assertValidation(t, err, MsgClientRequired)
	})

	t.Run("client checked before date", func(t *testing.T) {
		_, err := Params{Token: secret}.Validate(outcome.VariantCounts, secret)
		assertValidation(t, err, MsgClientRequired)
	})

	t.Run("date missing", func(t *testing.T) {
		_, err := Params{Token: secret, Client: "c1"}.Validate(outcome.VariantCounts, secret)
		assertValidation(t, err, MsgDateRequired)
	})

	t.Run("malformed date", func(t *testing.T) {
		_, err := Params{Token: secret, Client: "c1", Date: "01/02/2024"}.Validate(outcome.VariantCounts, secret)
		assertValidation(t, err, MsgDateFormat)
	})

	t.Run("valid", func(t *testing.T) {
		req, err := Params{Token: secret, Client: "c1", Provider: "ignored", Date: "2024-01-02"}.Validate(outcome.VariantCounts, secret)
		require.NoError(t, err)

		assert.Equal(t, outcome.VariantCounts, req.Variant)
		assert.Equal(t, outcome.ClientSubject("c1"), req.Subject)
		assert.Equal(t, "2024-01-02", req.Date)
		assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), req.Window.Start)
		assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), req.Window.End)
	})
}

func TestValidate_Latency(t *testing.T) {
	t.Run("neither client nor provider", func(t *testing.T) {
		_, err := Params{Token: secret, Date: "2024-01-02"}.Validate(outcome.VariantLatency, secret)
		assertValidation(t, err, MsgClientOrProvider)
	})

	t.Run("both client and provider", func(t *testing.T) {
		_, err := Params{Token: secret, Client: "c1", Provider: "p1", Date: "2024-01-02"}.Validate(outcome.VariantLatency, secret)
		assertValidation(t, err, MsgClientProviderConflict)
	})

	t.Run("date missing", func(t *testing.T) {
		_, err := Params{Token: secret, Provider: "p1"}.Validate(outcome.VariantLatency, secret)
		assertValidation(t, err, MsgDateRequired)
	})

	t.Run("client subject", func(t *testing.T) {
		req, err := Params{Token: secret, Client: "c1", Date: "2024-01-02"}.Validate(outcome.VariantLatency, secret)
		require.NoError(t, err)
		assert.Equal(t, outcome.ClientSubject("c1"), req.Subject)
	})

	t.Run("provider subject", func(t *testing.T) {
		req, err := Params{Token: secret, Provider: "p1", Date: "2024-01-02"}.Validate(outcome.VariantLatency, secret)
		require.NoError(t, err)
		assert.Equal(t, outcome.ProviderSubject("p1"), req.Subject)
		assert.Equal(t, outcome.VariantLatency, req.Variant)
	})
}

func TestValidateFilters_UnknownVariant(t *testing.T) {
	_, err := Params{Client: "c1", Date: "2024-01-02"}.ValidateFilters(outcome.Variant("weekly"))

	var verr *outcome.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestParamsFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("token", "t")
	q.Set("client", "c")
	q.Set("provider", "p")
	q.Set("date", "2024-02-29")

	assert.Equal(t, Params{Token: "t", Client: "c", Provider: "p", Date: "2024-02-29"}, ParamsFromQuery(q))
	assert.Equal(t, Params{}, ParamsFromQuery(url.Values{}))
}
