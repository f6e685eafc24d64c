//go:build !unix

package resolverd

import "os/exec"

func detach(*exec.Cmd) {}
