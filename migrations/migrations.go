// Package migrations содержит SQL схему, применяемую golang-migrate при старте
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
