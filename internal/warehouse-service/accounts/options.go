package accounts

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
)

var optionKinds = map[string]bool{
	database.OptionTechnicalCondition: true,
	database.OptionWarehouseName:      true,
}

func checkKind(kind string) error {
	if !optionKinds[kind] {
		return ErrUnknownOptionKind
	}
	return nil
}

func (s *Service) ListOptions(ctx context.Context, user *database.User, kind string) ([]*database.UserOption, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return s.repo.ListOptions(ctx, user.ID, kind)
}

func (s *Service) AddOption(ctx context.Context, user *database.User, kind, value string) (*database.UserOption, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	value = strings.TrimSpace(value)
	if value == "" || utf8.RuneCountInString(value) > maxOptionLen {
		return nil, ErrInvalidOption
	}
	o := &database.UserOption{UserID: user.ID, Kind: kind, Value: value}
	if err := s.repo.AddOption(ctx, o); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrOptionExists
		}
		return nil, err
	}
	return o, nil
}

func (s *Service) RemoveOption(ctx context.Context, user *database.User, kind string, id uint) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	err := s.repo.RemoveOption(ctx, user.ID, kind, id)
	if errors.Is(err, database.ErrRecordNotFound) {
		return ErrOptionNotFound
	}
	return err
}
