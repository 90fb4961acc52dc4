package main

import (
	"errors"
)

func cmdAttach(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: measnet attach <container-id|name>")
	}

	cm := newManager(loadConfig())

	container, err := cm.FindContainer(args[0])
	if err != nil {
		return err
	}

	return cm.AttachContainer(container)
}
