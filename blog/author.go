package blog

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost for author passwords.
const passwordCost = 12

// Author is the user entity posts reference. Login itself happens elsewhere.
type Author struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Hash     []byte    `json:"hash"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}

func NewAuthor(username, email string) (*Author, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	now := time.Now().UTC()
	return &Author{
		ID:       uuid.New().String(),
		Username: username,
		Email:    strings.TrimSpace(email),
		Created:  now,
		Updated:  now,
	}, nil
}

func (a *Author) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return err
	}
	a.Hash = hash
	return nil
}

func (a *Author) PasswordMatches(input string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(a.Hash, []byte(input))
	if err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}
	return true, nil
}

// Sanitize drops the password hash before the author leaves the process.
func (a *Author) Sanitize() {
	a.Hash = nil
}
