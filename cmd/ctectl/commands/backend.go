package commands

import (
	"context"
	"fmt"

	"github.com/rpattn/ctedash/internal/auth"
	"github.com/rpattn/ctedash/internal/db"
	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/repository"
	"github.com/rpattn/ctedash/internal/repository/sqlite"
)

// operatorTenant is the session tenant of the command-line operator, who is
// privileged and therefore may act on any tenant.
var operatorTenant = domain.MustTenantID("ctectl")

// backend bundles the stores a command works against.
type backend struct {
	store  repository.TenantStore
	ledger repository.LedgerRepository
	users  repository.UserRepository
	logs   repository.IngestionLogRepository
	close  func()
}

func openBackend(ctx context.Context) (*backend, error) {
	if localMode {
		local, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open local store %s: %w", cfg.SQLite.Path, err)
		}
		return &backend{
			store:  local.TenantStore(),
			ledger: local.Ledger(),
			close:  func() { _ = local.Close() },
		}, nil
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}
	return &backend{
		store:  repository.NewTenantStore(conn),
		ledger: repository.NewLedgerRepository(conn),
		users:  repository.NewUserRepository(conn),
		logs:   repository.NewIngestionLogRepository(conn.Pool),
		close:  conn.Close,
	}, nil
}

func (b *backend) requireUsers() error {
	if b.users == nil {
		return fmt.Errorf("user management needs Postgres; drop --local")
	}
	return nil
}

func operatorContext(ctx context.Context) context.Context {
	return auth.ContextWithSession(ctx, auth.Session{Username: "ctectl", Tenant: operatorTenant, Privileged: true})
}
