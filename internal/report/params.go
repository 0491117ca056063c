// Package report validates module outcome requests and runs them against the
// task-result store.
package report

import (
	"crypto/subtle"
	"net/url"

	"github.com/nadmax/modreport/internal/outcome"
)

const (
	MsgClientRequired         = "client is required"
	MsgClientOrProvider       = "client or provider is required"
	MsgClientProviderConflict = "provide either client or provider, not both"
	MsgDateRequired           = "date is required"
	MsgDateFormat             = "date must be in YYYY-MM-DD format"
)

// Params are the raw caller inputs of a report request.
type Params struct {
	Token    string
	Client   string
	Provider string
	Date     string
}

// Request is a validated report request.
type Request struct {
	Variant outcome.Variant
	Subject outcome.Subject
	Date    string
	Window  outcome.Window
}

func ParamsFromQuery(q url.Values) Params {
	return Params{
		Token:    q.Get("token"),
		Client:   q.Get("client"),
		Provider: q.Get("provider"),
		Date:     q.Get("date"),
	}
}

// Authorize reports whether token matches secret exactly. An empty secret
// never authorizes.
func Authorize(token, secret string) error {
	if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return outcome.ErrUnauthorized
	}
	return nil
}

// Validate checks p for variant in order: token, identifier, date.
func (p Params) Validate(variant outcome.Variant, secret string) (Request, error) {
	if err := Authorize(p.Token, secret); err != nil {
		return Request{}, err
	}

	return p.ValidateFilters(variant)
}

// ValidateFilters runs every check of Validate except the token comparison.
func (p Params) ValidateFilters(variant outcome.Variant) (Request, error) {
	subject, err := p.subject(variant)
	if err != nil {
		return Request{}, err
	}

	if p.Date == "" {
		return Request{}, outcome.NewValidationError(MsgDateRequired)
	}

	window, err := outcome.ParseDay(p.Date)
	if err != nil {
		return Request{}, outcome.NewValidationError(MsgDateFormat)
	}

	return Request{
		Variant: variant,
		Subject: subject,
		Date:    p.Date,
		Window:  window,
	}, nil
}

func (p Params) subject(variant outcome.Variant) (outcome.Subject, error) {
	switch variant {
	case outcome.VariantCounts:
		if p.Client == "" {
			return outcome.Subject{}, outcome.NewValidationError(MsgClientRequired)
		}
		return outcome.ClientSubject(p.Client), nil
	case outcome.VariantLatency:
		switch {
		case p.Client == "" && p.Provider == "":
			return outcome.Subject{}, outcome.NewValidationError(MsgClientOrProvider)
		case p.Client != "" && p.Provider != "":
			return outcome.Subject{}, outcome.NewValidationError(MsgClientProviderConflict)
		case p.Client != "":
			return outcome.ClientSubject(p.Client), nil
		default:
			return outcome.ProviderSubject(p.Provider), nil
		}
	default:
		return outcome.Subject{}, outcome.NewValidationError("unknown report variant: " + variant.String())
	}
}
