// Package accounts registers users, hands out auth tokens and keeps the
// option lists users pick from while scanning.
package accounts

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
)

const (
	minPasswordLen = 8
	// bcrypt ignores anything past 72 bytes
	maxPasswordBytes = 72
	maxUsernameLen   = 150
	maxOptionLen     = 255
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var (
	ErrUsernameTaken      = common.Kind(common.ErrValidation, "a user with that username already exists")
	ErrInvalidUsername    = common.Kind(common.ErrValidation, "username may contain only letters, digits and @/./+/-/_ characters, up to 150 of them")
	ErrPasswordTooShort   = common.Kind(common.ErrValidation, "password must be at least 8 characters long")
	ErrPasswordTooLong    = common.Kind(common.ErrValidation, "password must be at most 72 bytes long")
	ErrInvalidCredentials = common.Kind(common.ErrValidation, "unable to log in with provided credentials")
	ErrInvalidToken       = common.Kind(common.ErrUnauthenticated, "invalid token")
	ErrInactiveUser       = common.Kind(common.ErrUnauthenticated, "user inactive or deleted")
	ErrUserNotFound       = common.Kind(common.ErrNotFound, "user not found")
	ErrUnknownOptionKind  = common.Kind(common.ErrNotFound, "unknown option list")
	ErrInvalidOption      = common.Kind(common.ErrValidation, "value must be between 1 and 255 characters")
	ErrOptionExists       = common.Kind(common.ErrConflict, "this value is already in the list")
	ErrOptionNotFound     = common.Kind(common.ErrNotFound, "option not found")
)

// Verifier checks a bot protection token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

type Credentials struct {
	Username       string
	Password       string
	RecaptchaToken string
	RemoteIP       string
}

type Service struct {
	repo     *database.Repository
	verifier Verifier
	logger   *log.Entry
	now      func() time.Time
}

// NewService builds the service. A nil verifier switches bot checks off.
func NewService(repo *database.Repository, verifier Verifier, logger *log.Entry) *Service {
	return &Service{
		repo:     repo,
		verifier: verifier,
		logger:   logger.WithField("component", "accounts"),
		now:      time.Now,
	}
}

func (s *Service) verify(ctx context.Context, c Credentials) error {
	if s.verifier == nil {
		return nil
	}
	return s.verifier.Verify(ctx, c.RecaptchaToken, c.RemoteIP)
}

// Register creates a regular user after the bot check.
func (s *Service) Register(ctx context.Context, c Credentials) (*database.User, error) {
	if err := validateCredentials(c); err != nil {
		return nil, err
	}
	if err := s.verify(ctx, c); err != nil {
		s.logger.WithError(err).WithField("user", c.Username).Warn("registration bot check failed")
		return nil, err
	}
	return s.CreateUser(ctx, c.Username, c.Password, false)
}

// CreateUser stores a user without any bot check.
func (s *Service) CreateUser(ctx context.Context, username, password string, staff bool) (*database.User, error) {
	c := Credentials{Username: strings.TrimSpace(username), Password: password}
	if err := validateCredentials(c); err != nil {
		return nil, err
	}
	exists, err := s.repo.UsernameExists(ctx, c.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &database.User{
		Username:   c.Username,
		Password:   string(hash),
		IsStaff:    staff,
		IsActive:   true,
		DateJoined: s.now(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	s.logger.WithFields(log.Fields{"user": u.Username, "staff": staff}).Info("user registered")
	return u, nil
}

func validateCredentials(c Credentials) error {
	name := strings.TrimSpace(c.Username)
	if name == "" || utf8.RuneCountInString(name) > maxUsernameLen || !usernamePattern.MatchString(name) {
		return ErrInvalidUsername
	}
	if utf8.RuneCountInString(c.Password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if len(c.Password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func (s *Service) SetActive(ctx context.Context, username string, active bool) error {
	err := s.repo.SetUserActive(ctx, strings.TrimSpace(username), active)
	if errors.Is(err, database.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err == nil {
		s.logger.WithFields(log.Fields{"user": username, "active": active}).Info("user activity changed")
	}
	return err
}

// Login checks the password and returns the user's token, creating it on the
// first login.
func (s *Service) Login(ctx context.Context, c Credentials) (*database.User, *database.Token, error) {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return nil, nil, ErrInvalidCredentials
	}
	if err := s.verify(ctx, c); err != nil {
		s.logger.WithError(err).WithField("user", c.Username).Warn("login bot check failed")
		return nil, nil, err
	}
	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(c.Username))
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(c.Password)); err != nil || !u.IsActive {
		return nil, nil, ErrInvalidCredentials
	}
	t, err := s.repo.GetOrCreateToken(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, t, nil
}

// Authenticate resolves a token key to an active user.
func (s *Service) Authenticate(ctx context.Context, key string) (*database.User, error) {
	id, err := uuid.Parse(strings.TrimSpace(key))
	if err != nil {
		return nil, ErrInvalidToken
	}
	u, err := s.repo.GetUserByToken(ctx, id)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return u, nil
}
