// Command cryptachat-admin is the operator console: it reads the store directly
// and can remove a user together with everything that references it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/and161185/cryptachat/internal/config"
	"github.com/and161185/cryptachat/internal/migrate"
	"github.com/and161185/cryptachat/internal/repository/postgres"
	"github.com/and161185/cryptachat/internal/service"
	"golang.org/x/term"
)

type store struct {
	*service.AdminService
	dsn string
}

func (s store) SchemaVersion(ctx context.Context) (int64, error) {
	return migrate.Version(ctx, s.dsn)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *postgres.DB
	opener := func(ctx context.Context, dsn string) (adminAPI, error) {
		var err error
		db, err = postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return store{AdminService: service.NewAdminService(postgres.NewAdminRepo(db)), dsn: dsn}, nil
	}

	root := newRootCmd(opener, func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }, config.DatabaseDSN(os.LookupEnv))

	err := root.ExecuteContext(ctx)
	if db != nil {
		db.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}
