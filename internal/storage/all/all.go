// Package all links every storage backend into a binary.
package all

import (
	_ "qcmeta/internal/storage/mssql"
	_ "qcmeta/internal/storage/postgres"
	_ "qcmeta/internal/storage/sqlite"
)
