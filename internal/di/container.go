// Package di provides dependency injection configuration for the cellar tag service.
package di

import (
	"github.com/samber/do/v2"

	"github.com/cellarclub/cellar-server/internal/auth"
	"github.com/cellarclub/cellar-server/internal/config"
	"github.com/cellarclub/cellar-server/internal/di/providers"
	"github.com/cellarclub/cellar-server/internal/logger"
	"github.com/cellarclub/cellar-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideRegistryService)
	do.Provide(injector, providers.ProvideClaimService)
	do.Provide(injector, providers.ProvidePackService)
	do.Provide(injector, providers.ProvideBulkImportService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.RegistryService](injector)
	_ = do.MustInvoke[*service.ClaimService](injector)
	_ = do.MustInvoke[*service.PackService](injector)
	_ = do.MustInvoke[*service.BulkImportService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
