package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	"github.com/SscSPs/finledger/internal/middleware"
	"github.com/go-playground/validator/v10"
)

// validate checks request DTOs with the same `binding` tags gin uses, so
// in-process callers get the same rules as HTTP callers.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	return v
}

// validateRequest maps validator failures onto apperrors.ErrValidation.
func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return nil
}

// BaseService provides common functionality for all services
type BaseService struct {
	AccountReader portsrepo.AccountReader
	Now           func() time.Time
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogWarn logs a recoverable failure with consistent formatting
func (s *BaseService) LogWarn(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Warn(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// now returns the service clock, defaulting to UTC wall time.
func (s *BaseService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// AuthorizeAccount loads the account and checks that userID owns it. A missing
// account and one owned by someone else both return apperrors.ErrAccountNotFound,
// so callers cannot probe for other users' account ids.
func (s *BaseService) AuthorizeAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", apperrors.ErrValidation)
	}
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", apperrors.ErrValidation)
	}

	account, err := s.AccountReader.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		s.LogError(ctx, err, "Failed to find account by ID", slog.String("account_id", accountID))
		return nil, err
	}

	if !account.OwnedBy(userID) {
		s.LogDebug(ctx, "Account found but belongs to different user",
			slog.String("account_id", accountID),
			slog.String("user_id", userID))
		return nil, apperrors.ErrAccountNotFound
	}
	return account, nil
}
