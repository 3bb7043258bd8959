package client

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries "t=<unix>,v1=<hex hmac>[,v1=...]" computed over
// "<t>.<raw body>" with the shared webhook secret.
const SignatureHeader = "Stripe-Signature"

var (
	ErrNotSigned          = errors.New("webhook has no signature header")
	ErrNoWebhookSecret    = errors.New("webhook secret not configured")
	ErrInvalidHeader      = errors.New("webhook signature header is malformed")
	ErrNoValidSignature   = errors.New("webhook has no valid signature")
	ErrTimestampTolerance = errors.New("webhook timestamp outside tolerance")
)

func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrNotSigned
	}
	if secret == "" {
		return ErrNoWebhookSecret
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	expected := computeSignature(timestamp, payload, secret)
	valid := false
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			valid = true
			break
		}
	}
	if !valid {
		return ErrNoValidSignature
	}

	if tolerance > 0 && now.Sub(timestamp).Abs() > tolerance {
		return ErrTimestampTolerance
	}

	return nil
}

// SignPayload builds a signature header value for payload, as the provider would.
func SignPayload(payload []byte, secret string, at time.Time) string {
	sig := computeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}

func computeSignature(at time.Time, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(at.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

func parseSignatureHeader(header string) (time.Time, [][]byte, error) {
	var (
		timestamp  time.Time
		haveTime   bool
		signatures [][]byte
	)

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return time.Time{}, nil, ErrInvalidHeader
		}

		switch key {
		case "t":
			unix, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return time.Time{}, nil, ErrInvalidHeader
			}
			timestamp = time.Unix(unix, 0)
			haveTime = true
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if !haveTime {
		return time.Time{}, nil, ErrInvalidHeader
	}
	if len(signatures) == 0 {
		return time.Time{}, nil, ErrNoValidSignature
	}

	return timestamp, signatures, nil
}
