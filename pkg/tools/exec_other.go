//go:build !unix

package tools

import "os/exec"

// killProcessGroup is a no-op; WaitDelay alone bounds the wait.
func killProcessGroup(*exec.Cmd) {}
