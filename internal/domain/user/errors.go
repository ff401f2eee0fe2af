package user

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
)

var (
	ErrInsufficientPermissions = fmt.Errorf("%w: insufficient permissions", shared.ErrForbidden)
	ErrBusinessIDRequired      = errors.New("business ID is required")
	ErrUserIDRequired          = errors.New("user ID is required")
	ErrInvalidRole             = errors.New("invalid role")
)
