package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	dsnFlag           = "dsn"
	migrationPathFlag = "migrations-path"
	downFlag          = "down"
)

// migrationLogger adapts zap to migrate.Logger.
type migrationLogger struct {
	log     *zap.SugaredLogger
	verbose bool
}

func (ml *migrationLogger) Printf(format string, v ...any) {
	ml.log.Infof(format, v...)
}

func (ml *migrationLogger) Verbose() bool {
	return ml.verbose
}

func main() {
	zl, _ := zap.NewDevelopment()
	defer zl.Sync()
	log := zl.Sugar()

	dsn := pflag.StringP(dsnFlag, "d", os.Getenv("SELLER_CONSOLE_MYSQL_DSN"), "mysql DSN (user:pass@tcp(host:port)/db)")
	migrationsPath := pflag.StringP(migrationPathFlag, "m", "migrations", "")
	down := pflag.Bool(downFlag, false, "roll back every migration")
	pflag.Parse()

	if *dsn == "" {
		log.Errorw("too few args", "err", fmt.Errorf("--%s flag: required", dsnFlag))
		os.Exit(2)
	}

	m, err := migrate.New(
		fmt.Sprintf("file://%s", *migrationsPath),
		fmt.Sprintf("mysql://%s", *dsn),
	)
	if err != nil {
		log.Errorw("failed to migrate", "err", err)
		os.Exit(2)
	}
	m.Log = &migrationLogger{log: log, verbose: true}

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Printf("no migrations to apply")
			return
		}
		log.Errorw("failed to migrate", "err", err)
		os.Exit(2)
	}
	m.Log.Printf("migration applied")
}
