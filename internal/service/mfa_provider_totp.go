package service

import (
	"net/url"
	"strings"

	"github.com/pquerna/otp/totp"
)

// TOTPProvider implements the optional second login factor with standard
// 30-second, six-digit codes.
type TOTPProvider struct {
	Issuer string
}

func NewTOTPProvider(issuer string) *TOTPProvider {
	if strings.TrimSpace(issuer) == "" {
		issuer = "Outdoor Tracker"
	}
	return &TOTPProvider{Issuer: issuer}
}

func (p *TOTPProvider) GenerateSecret() (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.Issuer,
		AccountName: "pending",
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

func (p *TOTPProvider) QRCodeURL(email string, secret string) (string, error) {
	label := url.PathEscape(p.Issuer + ":" + email)
	query := url.Values{}
	query.Set("secret", secret)
	query.Set("issuer", p.Issuer)
	query.Set("algorithm", "SHA1")
	query.Set("digits", "6")
	query.Set("period", "30")
	return "otpauth://totp/" + label + "?" + query.Encode(), nil
}

func (p *TOTPProvider) ValidateCode(secret string, code string) bool {
	return totp.Validate(code, secret)
}
