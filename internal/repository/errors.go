// Package repository contains the data access layer: hand-written SQL over
// database/sql, one file per aggregate. Repositories return sentinel errors
// so handlers can map storage outcomes to HTTP status codes without parsing
// driver messages.
package repository

import (
	"errors"
	"strings"
)

// ErrForbidden is returned when a row exists but belongs to another account.
var ErrForbidden = errors.New("forbidden")

// isDuplicateKey reports whether err is a MySQL duplicate-key violation
// (error 1062). Unique indexes are what actually close the check-then-act
// races on usernames, emails and assignments; this helper turns the
// violation into a typed conflict for the caller.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}

// duplicateKeyOn narrows a 1062 error to the violated index. MySQL reports
// the index as "for key 'table.index_name'"; matching on that quoted suffix
// keeps the duplicated value itself (which the message also quotes, and which
// may contain arbitrary user text) from triggering a false match.
func duplicateKeyOn(err error, indexName string) bool {
	return isDuplicateKey(err) && strings.Contains(err.Error(), indexName+"'")
}
