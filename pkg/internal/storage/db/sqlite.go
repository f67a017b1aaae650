//go:build !no_sqlite

package db

import (
	"fmt"
	"strings"

	"github.com/yeisme/quickdrop/pkg/configs"
)

// sqliteDSN database 可以是 :memory:、带扩展名的路径或不带扩展名的库名.
func sqliteDSN(c configs.DBConfig) string {
	name := c.Database

	switch {
	case name == ":memory:":
		return "file::memory:?cache=shared&_pragma=busy_timeout(5000)"
	case !strings.Contains(name, "."):
		name += ".db"
	}

	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", name)
}
