package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNotPostgres
	}
	return runMigrationsFunc(context.Background(), cli.db, args[0], args[1:]...)
}

func (cli *commandLine) seedPhases() error {
	n, err := cli.catalogSvc.Seed(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%d learning phase(s) created\n", n)
	return nil
}
