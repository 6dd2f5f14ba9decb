package bankid

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

const (
	// QRCodeValidity is how long a generator produces codes after the order was started.
	QRCodeValidity = 30 * time.Second

	qrCodePrefix     = "bankid"
	qrExpiredDetails = "The QR code has expired after 30 seconds."
)

// QRGenerator derives the animated QR code sequence of one order. It is
// immutable after construction and safe for concurrent use.
type QRGenerator struct {
	token   string
	secret  []byte
	created time.Time
	now     func() time.Time
}

// NewQRGenerator starts the validity window now.
func NewQRGenerator(qrStartToken, qrStartSecret string) *QRGenerator {
	return newQRGenerator(qrStartToken, qrStartSecret, time.Now)
}

func newQRGenerator(token, secret string, now func() time.Time) *QRGenerator {
	return &QRGenerator{
		token:   token,
		secret:  []byte(secret),
		created: now(),
		now:     now,
	}
}

// ElapsedSeconds is the number of whole seconds since creation. time.Now
// carries a monotonic reading, so wall clock adjustments do not affect it.
func (g *QRGenerator) ElapsedSeconds() int {
	return int(g.now().Sub(g.created) / time.Second)
}

// IsExpired reports whether the 30 second window has passed.
func (g *QRGenerator) IsExpired() bool {
	return g.ElapsedSeconds() >= int(QRCodeValidity/time.Second)
}

// NextCode returns the QR code text for the current second in the form
// bankid.<qrStartToken>.<seconds>.<authCode>.
func (g *QRGenerator) NextCode() (string, error) {
	seconds := g.ElapsedSeconds()
	if seconds >= int(QRCodeValidity/time.Second) {
		return "", newError(http.StatusNotFound, KindExpired, qrExpiredDetails)
	}

	return qrCodePrefix + "." + g.token + "." + strconv.Itoa(seconds) + "." + ComputeAuthCode(g.secret, seconds), nil
}

// ComputeAuthCode is the lowercase hex HMAC-SHA256 of the decimal seconds
// keyed with the qrStartSecret.
func ComputeAuthCode(secret []byte, seconds int) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.Itoa(seconds)))
	return hex.EncodeToString(mac.Sum(nil))
}
