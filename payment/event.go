package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureHeader = "Stripe-Signature"

	EventCheckoutSessionCompleted = "checkout.session.completed"
)

var (
	ErrMissingSignature  = errors.New("missing signature header")
	ErrMalformedHeader   = errors.New("malformed signature header")
	ErrSignatureMismatch = errors.New("no signature matches the payload")
	ErrTimestampExpired  = errors.New("signature timestamp outside tolerance")
)

type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	Object json.RawMessage `json:"object"`
}

// CheckoutSession is the object carried by checkout.session.* events.
type CheckoutSession struct {
	ID            string            `json:"id"`
	Customer      string            `json:"customer"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	var s CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &s, nil
}

// ConstructEvent verifies header against payload and decodes the event.
func ConstructEvent(payload []byte, header, secret string, tolerance time.Duration) (*Event, error) {
	return constructEventAt(payload, header, secret, tolerance, time.Now())
}

func constructEventAt(payload []byte, header, secret string, tolerance time.Duration, now time.Time) (*Event, error) {
	if strings.TrimSpace(header) == "" {
		return nil, ErrMissingSignature
	}
	ts, signatures, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	expected := computeSignature(payload, secret, ts)
	matched := false
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, ErrSignatureMismatch
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return nil, ErrTimestampExpired
		}
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return nil, fmt.Errorf("decode event: missing id or type")
	}
	return &ev, nil
}

// SignPayload builds the signature header the gateway would send for
// payload at time ts.
func SignPayload(payload []byte, secret string, ts time.Time) string {
	sig := computeSignature(payload, secret, ts.Unix())
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}

func computeSignature(payload []byte, secret string, ts int64) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

func parseHeader(header string) (int64, [][]byte, error) {
	var (
		ts    int64
		hasTS bool
		sigs  [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return 0, nil, ErrMalformedHeader
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, ErrMalformedHeader
			}
			ts, hasTS = parsed, true
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			sigs = append(sigs, sig)
		}
	}
	if !hasTS || len(sigs) == 0 {
		return 0, nil, ErrMalformedHeader
	}
	return ts, sigs, nil
}
