//go:build !no_sqlite && cgo

package db

import (
	"gorm.io/driver/sqlite"

	"github.com/yeisme/quickdrop/pkg/configs"
)

// cgo 可用时使用 mattn/go-sqlite3.
func init() {
	register(driver{name: "SQLite", dial: sqlite.Open, layout: sqliteDSN, single: true}, configs.SQLite)
}
