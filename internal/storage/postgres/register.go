package postgres

import "qcmeta/internal/storage"

func init() {
	storage.Register("postgres", New)
}
