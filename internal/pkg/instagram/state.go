package instagram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const stateTTL = 15 * time.Minute

var ErrInvalidState = errors.New("invalid state parameter")

type statePayload struct {
	CompanyID string `json:"companyId"`
	IssuedAt  int64  `json:"iat"`
}

// StateSigner binds the OAuth round trip to the company that started it.
// The state is base64url(payload) + "." + base64url(hmac).
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret), now: time.Now}
}

func (s *StateSigner) Sign(companyID string) string {
	raw, _ := json.Marshal(statePayload{CompanyID: companyID, IssuedAt: s.now().Unix()})
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + s.mac(payload)
}

// Verify returns the company id of a state produced by Sign.
func (s *StateSigner) Verify(state string) (string, error) {
	payload, sig, ok := strings.Cut(state, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(s.mac(payload))) {
		return "", ErrInvalidState
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrInvalidState
	}
	var p statePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.CompanyID == "" {
		return "", ErrInvalidState
	}
	if s.now().Sub(time.Unix(p.IssuedAt, 0)) > stateTTL {
		return "", ErrInvalidState
	}
	return p.CompanyID, nil
}

func (s *StateSigner) mac(payload string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
