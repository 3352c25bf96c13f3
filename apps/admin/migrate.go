package main

import (
	"context"

	"github.com/trezcool/alama/storage/database"
)

var (
	migrateFunc  = database.Migrate          // mockable
	createDBFunc = database.CreateIfNotExist // mockable
)

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if args[0] == "up" || args[0] == "up-by-one" || args[0] == "up-to" {
		if err := createDBFunc(ctx, cli.conf); err != nil {
			return err
		}
	}
	db, err := cli.database()
	if err != nil {
		return err
	}
	return migrateFunc(ctx, db, args[0], args[1:]...)
}
