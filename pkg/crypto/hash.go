package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt-хэши для basic auth на debug endpoints.
// В конфигурации хранится хэш, а не пароль.

var (
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordMismatch = errors.New("password does not match hash")
	ErrInvalidHash      = errors.New("invalid password hash format")
	ErrPasswordTooLong  = errors.New("password exceeds maximum length of 72 bytes")
)

// DefaultCost - стоимость хеширования bcrypt
const DefaultCost = 12

// MaxPasswordLength - лимит bcrypt на длину пароля
const MaxPasswordLength = 72

// HashPassword хеширует пароль, salt генерируется автоматически
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword сверяет пароль с хэшем за константное время
func VerifyPassword(password, hash string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if hash == "" {
		return ErrInvalidHash
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return ErrInvalidHash
	}
	return nil
}

// CheckPasswordMatch - булева обертка над VerifyPassword для middleware
func CheckPasswordMatch(password, hash string) bool {
	return VerifyPassword(password, hash) == nil
}
