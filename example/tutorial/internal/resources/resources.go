// Package resources embeds the input files, named statements and schema
// migrations of the tutorial jobs.
package resources

import (
	"embed"
	"io/fs"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/statement"
)

const (
	PlayersFile   = "data/players.csv"
	CustomersFile = "data/customers.tsv"
	// MigrationsDir holds one sub-directory per database type.
	MigrationsDir = "migrations"
)

//go:embed data statements migrations
var files embed.FS

// FS returns the embedded resources.
func FS() fs.FS {
	return files
}

// Migrations returns the migration tree rooted at MigrationsDir.
func Migrations() (fs.FS, error) {
	return fs.Sub(files, MigrationsDir)
}

// Statements loads every statement file into a new registry.
func Statements() (*statement.Registry, error) {
	registry := statement.NewRegistry()
	entries, err := fs.ReadDir(files, "statements")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		f, err := files.Open("statements/" + e.Name())
		if err != nil {
			return nil, err
		}
		err = registry.Load(f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return registry, nil
}
