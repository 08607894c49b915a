// Package preview mints short-lived handles that let an author look at an
// uploaded attachment without exposing the blob reference. Handles are signed
// with a secret generated per process, so none of them outlive a restart.
package preview

import (
	"errors"
	"fmt"
	"time"

	"github.com/dunetube/dunetube/core/course"
	"github.com/dunetube/dunetube/random"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidHandle = errors.New("preview: invalid or expired handle")

type claims struct {
	Ref  string                `json:"ref"`
	Type course.AttachmentType `json:"typ"`
	Name string                `json:"name"`
	jwt.RegisteredClaims
}

// Target is what a handle resolves to.
type Target struct {
	AttachmentID string
	Ref          string
	Type         course.AttachmentType
	Name         string
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(ttl time.Duration) (*Signer, error) {
	secret, err := random.StringSecure(48)
	if err != nil {
		return nil, fmt.Errorf("generating preview secret: %w", err)
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Handle implements course.Previewer.
func (s *Signer) Handle(a course.Attachment) (string, error) {
	now := s.now()
	c := claims{
		Ref:  a.Ref,
		Type: a.Type,
		Name: a.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing preview handle: %w", err)
	}
	return tok, nil
}

func (s *Signer) Resolve(handle string) (Target, error) {
	var c claims
	_, err := jwt.ParseWithClaims(handle, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}

	return Target{AttachmentID: c.Subject, Ref: c.Ref, Type: c.Type, Name: c.Name}, nil
}
