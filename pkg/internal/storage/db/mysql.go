//go:build !no_mysql

package db

import (
	"fmt"

	"gorm.io/driver/mysql"

	"github.com/yeisme/quickdrop/pkg/configs"
)

func init() {
	register(driver{
		name:   "MySQL",
		dial:   mysql.Open,
		layout: mysqlDSN,
	}, configs.MySQL, configs.MariaDB)
}

func mysqlDSN(c configs.DBConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Database)
}
