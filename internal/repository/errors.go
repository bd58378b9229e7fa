// Package repository implements the MySQL side of the entity store.
// Methods with a Tx suffix run inside a caller-supplied transaction; the
// caller commits or rolls back.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when a user is created with an email that is
// already registered.  Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

const errDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func stringArgs[S ~string](vals []S) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = string(v)
	}
	return args
}
