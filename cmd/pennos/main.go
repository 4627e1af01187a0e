// Command pennos boots the kernel: mount (or create) a FAT volume,
// start the scheduler's tick loop, and spawn the shell as PID 1.
// Grounded on the teacher's tiny main.go (protector.Protect() then
// delegate into the package), generalized from fzf's single Run call
// into pennos's mount/boot/drive/cleanup sequence.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arush-mehrotra/penn-os/internal/fat"
	"github.com/arush-mehrotra/penn-os/internal/klog"
	"github.com/arush-mehrotra/penn-os/internal/kernel"
	"github.com/arush-mehrotra/penn-os/internal/ksync"
	"github.com/arush-mehrotra/penn-os/internal/protector"
	"github.com/arush-mehrotra/penn-os/internal/shell"
)

// quantum is the host tick interval driving the scheduler (spec §5 "a
// host timer signal drives quantum boundaries"), matching the
// original's 100ms SIGALRM period.
const quantum = 100 * time.Millisecond

func main() {
	protector.Protect()
	opts := ParseOptions()

	if opts.MkfsBlocks > 0 {
		if err := fat.Mkfs(opts.FSImage, opts.MkfsBlocks, 2); err != nil {
			fmt.Fprintln(os.Stderr, "pennos: mkfs:", err)
			os.Exit(1)
		}
	}

	volume, err := fat.Mount(opts.FSImage)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pennos: mount:", err)
		os.Exit(1)
	}
	ksync.AtExit(func() { volume.Unmount() })

	logger, err := klog.Open(opts.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pennos: log:", err)
		os.Exit(1)
	}
	ksync.AtExit(func() { logger.Close() })

	registry := kernel.NewRegistry()
	scheduler := kernel.NewScheduler(registry, logger)
	scheduler.SetOutput(os.Stdout)
	fs := kernel.NewFS(volume, registry)

	sh, err := shell.New(scheduler, fs, opts.HistoryFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pennos: shell:", err)
		os.Exit(1)
	}

	scheduler.Spawn(kernel.NoParent, "shell", opts.FSImage, false, func(pid kernel.PID) int {
		sh.Run()
		return 0
	})

	go driveTicks(scheduler)
	go forwardHostSignals(scheduler, sh)
	scheduler.Run()

	ksync.RunAtExitFuncs()
}

// driveTicks posts one tick to the scheduler every quantum until
// logout, the host-side half of spec §5's tick-driven scheduling loop.
func driveTicks(s *kernel.Scheduler) {
	ticker := time.NewTicker(quantum)
	defer ticker.Stop()
	for range ticker.C {
		s.PostTick()
	}
}

// forwardHostSignals implements spec §5: the two host signals interrupt
// and stop are caught here (not left to each process's own signal
// disposition) and forwarded in-band as kernel signals to whichever PID
// is presently the foreground job. When the shell itself is foreground
// (no job has been spawned yet, or none is currently running in the
// foreground), the signal redraws the prompt instead of being
// delivered, per spec §5.
func forwardHostSignals(s *kernel.Scheduler, sh *shell.Shell) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTSTP)
	defer signal.Stop(sigCh)

	for sig := range sigCh {
		fg := s.ForegroundPID()
		if fg <= shell.ShellPID {
			sh.RedrawPrompt()
			continue
		}
		switch sig {
		case os.Interrupt:
			s.Kill(fg, kernel.SigTerm)
		case syscall.SIGTSTP:
			s.Kill(fg, kernel.SigStop)
		}
	}
}
