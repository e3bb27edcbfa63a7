//go:build !linux

package main

import (
	"context"
	"errors"
)

func readInputEvents(ctx context.Context, paths []string, out chan<- inputEvent) error {
	return errors.New("input devices are only supported on linux")
}
