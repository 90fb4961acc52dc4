package main

import (
	"context"
	"errors"
	"os"
)

func cmdExec(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: measnet exec <container-id|name> <command> [args...]")
	}

	cm := newManager(loadConfig())

	container, err := cm.FindContainer(args[0])
	if err != nil {
		return err
	}

	return cm.ExecCommand(context.Background(), container, args[1:], os.Stdin, os.Stdout, os.Stderr)
}
