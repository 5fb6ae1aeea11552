package main

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// systemOpener hands files and links to the desktop's default handler and
// prints the target when no handler is available.
type systemOpener struct {
	out io.Writer
}

func newSystemOpener(out io.Writer) *systemOpener {
	return &systemOpener{out: out}
}

func (o *systemOpener) View(_ context.Context, path, contentType string) error {
	if err := launch(path); err != nil {
		fmt.Fprintf(o.out, "%s saved to %s\n", contentType, path)
	}
	return nil
}

func (o *systemOpener) Browse(_ context.Context, rawURL string) error {
	if err := launch(rawURL); err != nil {
		fmt.Fprintf(o.out, "open in a browser: %s\n", rawURL)
	}
	return nil
}

func launch(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
