package sandbox

import (
	"os"
	"os/exec"
)

// Cmd builds a ready-to-exec *exec.Cmd with the sandbox's environment
// active: working directory set to the sandbox root and a JULIA_PROJECT
// variable pointing the child at the synthetic Project.toml, alongside the
// caller's own environment. Running the returned command (and reacting to
// its exit code or interruption) is the caller's responsibility — spec.md
// §1 explicitly scopes build/test execution itself out of this package.
func (s *Sandbox) Cmd(name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	cmd.Dir = s.Dir
	cmd.Env = append(os.Environ(), "JULIA_PROJECT="+s.Dir)
	return cmd
}
