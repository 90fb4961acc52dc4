package domain

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// NsenterCommand is the hidden argv[1] under which a binary re-executes
// itself to enter a namespace before exec'ing a shell or command.
const NsenterCommand = "__measnet_nsenter__"

// HandleNsenter must run first in every main that can spawn node shells. It
// only returns when argv is not an nsenter request.
func HandleNsenter() {
	if len(os.Args) < 2 || os.Args[1] != NsenterCommand {
		return
	}
	if err := nsenter(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "nsenter: %v\n", err)
	}
	os.Exit(1)
}

// nsenter takes <ns-path> <node-name> [command...]; with no command it runs
// an interactive bash.
func nsenter(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("missing arguments")
	}
	nsPath, nodeName, command := args[0], args[1], args[2:]

	// Lock the OS thread to ensure namespace operations affect this thread
	runtime.LockOSThread()

	nsFd, err := os.Open(nsPath)
	if err != nil {
		return fmt.Errorf("open namespace: %w", err)
	}
	defer nsFd.Close()

	if err := unix.Setns(int(nsFd.Fd()), unix.CLONE_NEWNET); err != nil {
		return fmt.Errorf("setns: %w", err)
	}

	os.Setenv("PS1", fmt.Sprintf("measnet@%s:\\w $ ", nodeName))

	if len(command) == 0 {
		command = []string{"bash", "--noprofile", "--norc"}
	}
	bin, err := exec.LookPath(command[0])
	if err != nil {
		return err
	}
	return syscall.Exec(bin, command, os.Environ())
}

func nsenterCmd(namespace *Namespace, nodeName string, command []string) *exec.Cmd {
	args := append([]string{NsenterCommand, namespace.Path, nodeName}, command...)
	return exec.Command("/proc/self/exe", args...)
}
