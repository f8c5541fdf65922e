package main

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openFile is swapped out in tests.
var openFile = openInViewer

// openInViewer hands path to the platform's default viewer without waiting
// for it to exit.
func openInViewer(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
