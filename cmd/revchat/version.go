package main

import (
	"context"
	"fmt"

	"github.com/a-h/revchat"
)

type VersionCommand struct {
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	fmt.Println(revchat.Version)
	return nil
}
