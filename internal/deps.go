package internal

import (
	"jobber/auth-api/internal/search"
	"jobber/auth-api/internal/service"
	"jobber/auth-api/pkg/security"

	"github.com/chenyahui/gin-cache/persist"
	"gorm.io/gorm"
)

// Deps is handed to every handler
type Deps struct {
	DB        *gorm.DB
	Lifecycle *service.Lifecycle
	Search    *search.Paginator
	Sessions  *security.SessionSigner
	Cache     persist.CacheStore
}
