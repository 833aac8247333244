package user

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadResetToken = errors.New("invalid or expired reset token")
	ErrWrongPassword = errors.New("current password is incorrect")
)

const resetTokenTTL = 15 * time.Minute

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List() []User {
	return s.repo.List()
}

func (s *Service) GetByID(id int) (User, error) {
	return s.repo.GetByID(id)
}

func (s *Service) Update(id int, user User) (User, error) {
	user.UpdatedAt = now()
	return s.repo.Update(id, user)
}

func (s *Service) Delete(id int) error {
	return s.repo.Delete(id)
}

func (s *Service) Register(user User) (User, error) {
	if _, err := s.repo.GetByEmail(user.Email); err == nil {
		return User{}, ErrEmailExists
	} else if err != ErrNotFound {
		return User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user.Password = string(hashed)
	user.Role = RoleCustomer
	return s.repo.Create(user)
}

func (s *Service) Authenticate(email, password string) (User, error) {
	user, err := s.repo.GetByEmail(email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

// UpdatePassword changes a user's password after verifying the current one.
func (s *Service) UpdatePassword(id int, current, next string) error {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return ErrWrongPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.Password = string(hashed)
	user.UpdatedAt = now()
	_, err = s.repo.Update(id, user)
	return err
}

// ForgotPassword stores a hashed single-use reset token for the account and
// returns the raw token so the caller can hand it to the mail collaborator.
// An unknown email returns ErrNotFound; callers should not reveal that to the
// client.
func (s *Service) ForgotPassword(email string) (string, error) {
	user, err := s.repo.GetByEmail(email)
	if err != nil {
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	user.ResetTokenHash = hashToken(token)
	user.ResetExpiresAt = time.Now().UTC().Add(resetTokenTTL).Format(time.RFC3339)
	user.UpdatedAt = now()
	if _, err := s.repo.Update(user.ID, user); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a reset token and sets a new password. The token is
// cleared whether or not it had expired, so it is single-use either way.
func (s *Service) ResetPassword(token, next string) error {
	user, err := s.repo.GetByResetToken(hashToken(token))
	if err != nil {
		return ErrBadResetToken
	}

	expired := true
	if t, perr := time.Parse(time.RFC3339, user.ResetExpiresAt); perr == nil {
		expired = time.Now().UTC().After(t)
	}

	user.ResetTokenHash = ""
	user.ResetExpiresAt = ""
	user.UpdatedAt = now()

	if expired {
		s.repo.Update(user.ID, user)
		return ErrBadResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	_, err = s.repo.Update(user.ID, user)
	return err
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
