//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"

	"github.com/yeisme/quickdrop/pkg/configs"
)

// 无 cgo 时使用 modernc 的纯 Go 实现.
func init() {
	register(driver{name: "SQLite", dial: sqlite.Open, layout: sqliteDSN, single: true}, configs.SQLite)
}
