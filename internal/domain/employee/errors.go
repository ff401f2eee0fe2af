package employee

import (
	"fmt"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
)

var (
	ErrEmployeeNotFound = fmt.Errorf("%w: employee not found", shared.ErrNotFound)
)
