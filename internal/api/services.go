package api

import (
	"github.com/cellarclub/cellar-server/internal/service"
)

// Services bundles the business services the HTTP layer dispatches to.
type Services struct {
	Registry   *service.RegistryService
	Claim      *service.ClaimService
	Pack       *service.PackService
	BulkImport *service.BulkImportService
}
