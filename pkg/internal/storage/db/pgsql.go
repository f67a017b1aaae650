//go:build !no_postgres

package db

import (
	"fmt"

	"gorm.io/driver/postgres"

	"github.com/yeisme/quickdrop/pkg/configs"
)

func init() {
	register(driver{
		name:   "PostgreSQL",
		dial:   postgres.Open,
		layout: postgresDSN,
	}, configs.PostgreSQL, configs.Postgres, configs.Pg)
}

func postgresDSN(c configs.DBConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}
