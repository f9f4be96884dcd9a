package providers

import (
	"github.com/samber/do/v2"

	"github.com/cellarclub/cellar-server/internal/config"
	"github.com/cellarclub/cellar-server/internal/domain"
	"github.com/cellarclub/cellar-server/internal/logger"
	"github.com/cellarclub/cellar-server/internal/service"
)

// ProvideRegistryService provides the tag registry service.
func ProvideRegistryService(i do.Injector) (*service.RegistryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRegistryService(storeHandle.Store, log), nil
}

// ProvideClaimService provides the claim resolution service.
func ProvideClaimService(i do.Injector) (*service.ClaimService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewClaimService(storeHandle.Store, log), nil
}

// ProvidePackService provides the tag pack service.
func ProvidePackService(i do.Injector) (*service.PackService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPackService(storeHandle.Store, log), nil
}

// ProvideBulkImportService provides the bulk import session service.
func ProvideBulkImportService(i do.Injector) (*service.BulkImportService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	registry := do.MustInvoke[*service.RegistryService](i)
	log := do.MustInvoke[*logger.Logger](i)

	policy := domain.DuplicatePolicy(cfg.Bulk.DefaultDuplicatePolicy)
	return service.NewBulkImportService(storeHandle.Store, registry, policy, log), nil
}
