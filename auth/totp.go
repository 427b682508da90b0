package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmcleod/phantom/internal/util"
)

const (
	totpSecretBytes   = 32
	totpDigits        = 6
	totpPeriod        = 30
	DefaultTOTPWindow = 2
	DefaultTOTPIssuer = "Phantom Blog"
)

var totpEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTPEnrollment is a freshly generated secret plus the provisioning URI
// an authenticator app scans.
type TOTPEnrollment struct {
	Secret     string
	OtpauthURL string
}

// TOTP generates enrollment secrets and verifies RFC 6238 codes
// (HMAC-SHA1, 6 digits, 30 second step).
type TOTP struct {
	issuer string
	window int
	now    func() time.Time
}

// NewTOTP returns an engine that accepts codes up to window steps before
// or after the current one.
func NewTOTP(issuer string, window int, now func() time.Time) *TOTP {
	if issuer == "" {
		issuer = DefaultTOTPIssuer
	}
	if window < 0 {
		window = DefaultTOTPWindow
	}
	if now == nil {
		now = time.Now
	}
	return &TOTP{issuer: issuer, window: window, now: now}
}

// GenerateSecret returns a new base32 secret derived from 32 random bytes
// and its otpauth:// URI labelled with accountLabel.
func (t *TOTP) GenerateSecret(accountLabel string) (TOTPEnrollment, error) {
	raw, err := util.RandomBytes(totpSecretBytes)
	if err != nil {
		return TOTPEnrollment{}, err
	}
	defer util.WipeBytes(raw)
	secret := totpEncoding.EncodeToString(raw)
	return TOTPEnrollment{
		Secret:     secret,
		OtpauthURL: t.otpAuthURL(secret, accountLabel),
	}, nil
}

// Verify checks code against secret at the engine's current time.
func (t *TOTP) Verify(code, secret string) bool {
	return t.VerifyAt(code, secret, t.now())
}

// VerifyAt checks code against secret as if the clock read now. Malformed
// codes or secrets are rejected, never reported as errors.
func (t *TOTP) VerifyAt(code, secret string, now time.Time) bool {
	code = normalizeTOTPCode(code)
	if !validTOTPCode(code) {
		return false
	}
	matched := 0
	for i := -t.window; i <= t.window; i++ {
		at := now.Add(time.Duration(i*totpPeriod) * time.Second)
		expected, err := CodeAt(secret, at)
		if err != nil {
			return false
		}
		matched |= subtle.ConstantTimeCompare([]byte(expected), []byte(code))
	}
	return matched == 1
}

// CodeAt computes the code for secret in the time step containing at.
func CodeAt(secret string, at time.Time) (string, error) {
	decoded, err := totpEncoding.DecodeString(strings.ToUpper(strings.TrimRight(secret, "=")))
	if err != nil {
		return "", fmt.Errorf("decoding totp secret: %w", err)
	}
	if len(decoded) == 0 {
		return "", fmt.Errorf("empty totp secret")
	}

	counter := uint64(at.Unix() / totpPeriod)
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, decoded)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)
	offset := sum[len(sum)-1] & 0x0f
	binCode := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)
	return fmt.Sprintf("%0*d", totpDigits, binCode%1000000), nil
}

func normalizeTOTPCode(code string) string {
	return strings.TrimSpace(strings.ReplaceAll(code, " ", ""))
}

func validTOTPCode(code string) bool {
	if len(code) != totpDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (t *TOTP) otpAuthURL(secret, accountLabel string) string {
	label := t.issuer
	if accountLabel != "" {
		label += ":" + accountLabel
	}
	values := url.Values{}
	values.Set("secret", secret)
	values.Set("issuer", t.issuer)
	values.Set("algorithm", "SHA1")
	values.Set("digits", strconv.Itoa(totpDigits))
	values.Set("period", strconv.Itoa(totpPeriod))
	return "otpauth://totp/" + url.PathEscape(label) + "?" + values.Encode()
}
