// Command snapfit fits photos into an upload byte budget as JPEG.
//
// Usage:
//
//	snapfit compress [flags] <input>...
//	snapfit upload --url URL [flags] <input>
//
// Examples:
//
//	snapfit compress photo.png
//	snapfit compress --max-bytes 500KB --max-dimension 1200 -o out/ *.png
//	snapfit upload --url https://api.example.com/vision meal.jpg
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shamspias/snapfit"
)

// version is set at build time via ldflags.
var version = snapfit.Version

// Exit codes.
const (
	exitSuccess = 0
	exitGeneral = 1
	exitUsage   = 2
	exitDecode  = 3
	exitConfig  = 4
	exitUpload  = 5
)

func main() {
	// Interrupts stop new files from starting; runs in flight finish.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// configError marks failures to load or validate configuration.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// usageError marks invalid command-line usage.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var (
		ce *configError
		ue *usageError
		up *snapfit.UploadError
	)
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue):
		return exitUsage
	case errors.As(err, &ce):
		return exitConfig
	case errors.Is(err, snapfit.ErrDecode):
		return exitDecode
	case errors.As(err, &up):
		return exitUpload
	default:
		return exitGeneral
	}
}
