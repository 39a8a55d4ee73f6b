package otpurl

import (
	"fmt"
	"net/url"

	"github.com/phoenixotp/phoenix/internal/models"
)

// Export renders an account as an otpauth URL. The secret must already be
// decrypted by the caller. The algorithm parameter is omitted when the
// account never specified one.
func Export(name, secret string, step, digits int, alg models.Algorithm) string {
	out := fmt.Sprintf("otpauth://totp/%s?secret=%s&period=%d&digits=%d",
		url.PathEscape(name), secret, step, digits)

	if s := alg.String(); s != "" {
		out += "&algorithm=" + s
	}
	return out
}
