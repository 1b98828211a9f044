package auth

import (
	"errors"

	"github.com/alexedwards/argon2id"
)

// Hasher produces and checks argon2id password hashes in the encoded
// $argon2id$v=19$m=...,t=...,p=...$salt$key form.
type Hasher struct {
	params *argon2id.Params
}

func NewHasher(p *argon2id.Params) *Hasher {
	if p == nil {
		p = argon2id.DefaultParams
	}
	return &Hasher{params: p}
}

func (h *Hasher) Hash(plain string) (string, error) {
	if h.params == nil {
		return "", errors.New("argon2id params not set")
	}
	return argon2id.CreateHash(plain, h.params)
}

func (h *Hasher) Compare(plain, encoded string) (bool, error) {
	return argon2id.ComparePasswordAndHash(plain, encoded)
}
