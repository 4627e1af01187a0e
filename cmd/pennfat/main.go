// Command pennfat is the standalone FAT-image admin REPL, independent
// of the kernel/scheduler: mkfs, mount, unmount, touch, mv, rm, cat
// (print files to stdout, or -w/-a to write stdin or other files into a
// volume file), cp (-h for host-filesystem passthrough on either side),
// chmod, ls.
// Grounded on original_source/src/pennfat.c's REPL loop.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/arush-mehrotra/penn-os/internal/fat"
)

const prompt = "pennfat# "

func main() {
	var volume *fat.Volume
	reader := bufio.NewReader(os.Stdin)
	parser := shellwords.NewParser()

	for {
		fmt.Fprint(os.Stdout, prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintln(os.Stdout)
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args, err := parser.Parse(line)
		if err != nil || len(args) == 0 {
			fmt.Fprintln(os.Stderr, "pennfat: parse error")
			continue
		}

		switch args[0] {
		case "mkfs":
			runMkfs(args)
		case "mount":
			volume = runMount(args)
		case "unmount":
			volume = runUnmount(volume)
		case "touch":
			requireMounted(volume, "touch", func() { runTouch(volume, args) })
		case "mv":
			requireMounted(volume, "mv", func() { runMv(volume, args) })
		case "rm":
			requireMounted(volume, "rm", func() { runRm(volume, args) })
		case "cat":
			requireMounted(volume, "cat", func() { runCat(volume, args, reader) })
		case "cp":
			requireMounted(volume, "cp", func() { runCp(volume, args) })
		case "chmod":
			requireMounted(volume, "chmod", func() { runChmod(volume, args) })
		case "ls":
			requireMounted(volume, "ls", func() { runLs(volume) })
		case "exit", "quit":
			if volume != nil {
				volume.Unmount()
			}
			return
		default:
			fmt.Fprintf(os.Stderr, "pennfat: unknown command %q\n", args[0])
		}
	}

	if volume != nil {
		volume.Unmount()
	}
}

func requireMounted(v *fat.Volume, cmd string, fn func()) {
	if v == nil {
		fmt.Fprintf(os.Stderr, "%s: filesystem not mounted\n", cmd)
		return
	}
	fn()
}

func runMkfs(args []string) {
	if len(args) != 4 {
		fmt.Fprintln(os.Stderr, "mkfs: usage: mkfs FS_NAME BLOCKS_IN_FAT BLOCK_SIZE_CONFIG")
		return
	}
	blocks, err1 := strconv.Atoi(args[2])
	config, err2 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil {
		fmt.Fprintln(os.Stderr, "mkfs: invalid arguments")
		return
	}
	if err := fat.Mkfs(args[1], blocks, config); err != nil {
		fmt.Fprintln(os.Stderr, "mkfs:", err)
	}
}

func runMount(args []string) *fat.Volume {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "mount: usage: mount FS_NAME")
		return nil
	}
	v, err := fat.Mount(args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "mount:", err)
		return nil
	}
	return v
}

func runUnmount(v *fat.Volume) *fat.Volume {
	if v == nil {
		fmt.Fprintln(os.Stderr, "unmount: filesystem not mounted")
		return nil
	}
	if err := v.Unmount(); err != nil {
		fmt.Fprintln(os.Stderr, "unmount:", err)
	}
	return nil
}

func runTouch(v *fat.Volume, args []string) {
	for _, name := range args[1:] {
		if err := v.Touch(name); err != nil {
			fmt.Fprintf(os.Stderr, "touch: %s: %v\n", name, err)
			return
		}
	}
}

func runMv(v *fat.Volume, args []string) {
	if len(args) != 3 {
		fmt.Fprintln(os.Stderr, "mv: usage: mv SRC DST")
		return
	}
	if err := v.Mv(args[1], args[2]); err != nil {
		fmt.Fprintln(os.Stderr, "mv:", err)
	}
}

func runRm(v *fat.Volume, args []string) {
	for _, name := range args[1:] {
		if err := v.Unlink(name); err != nil {
			fmt.Fprintf(os.Stderr, "rm: %s: %v\n", name, err)
			return
		}
	}
}

// runCat implements the original's three forms: "cat F1 F2..." (dump
// to stdout), "cat -w/-a FILE" (copy stdin into FILE), "cat F1 -w F2"
// (copy FILE contents into another FILE).
func runCat(v *fat.Volume, args []string, stdin *bufio.Reader) {
	n := len(args)
	if n == 3 && (args[1] == "-w" || args[1] == "-a") {
		mode := fat.ModeWrite
		if args[1] == "-a" {
			mode = fat.ModeAppend
		}
		fd, err := v.Open(args[2], mode)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cat:", err)
			return
		}
		defer v.Close(fd)
		for {
			line, err := stdin.ReadString('\n')
			if len(line) > 0 {
				v.Write(fd, []byte(line))
			}
			if err != nil {
				return
			}
		}
	}

	if n >= 4 && (args[n-2] == "-w" || args[n-2] == "-a") {
		mode := fat.ModeWrite
		if args[n-2] == "-a" {
			mode = fat.ModeAppend
		}
		dst, err := v.Open(args[n-1], mode)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cat:", err)
			return
		}
		defer v.Close(dst)
		for _, name := range args[1 : n-2] {
			copyFileInto(v, name, dst)
		}
		return
	}

	for _, name := range args[1:] {
		fd, err := v.Open(name, fat.ModeRead)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cat: %s: %v\n", name, err)
			continue
		}
		for {
			chunk, err := v.Read(fd, 1024)
			if err != nil || len(chunk) == 0 {
				break
			}
			os.Stdout.Write(chunk)
		}
		v.Close(fd)
	}
}

func copyFileInto(v *fat.Volume, name string, dst int) {
	fd, err := v.Open(name, fat.ModeRead)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cat: %s: %v\n", name, err)
		return
	}
	defer v.Close(fd)
	for {
		chunk, err := v.Read(fd, 1024)
		if err != nil || len(chunk) == 0 {
			return
		}
		v.Write(dst, chunk)
	}
}

// runCp implements the original's -h host-passthrough on either side
// of the pair (spec's supplemented feature).
func runCp(v *fat.Volume, args []string) {
	rest := args[1:]
	hostSrc, hostDst := false, false
	if len(rest) >= 1 && rest[0] == "-h" {
		hostSrc = true
		rest = rest[1:]
	}
	// "-h" immediately before the destination marks it host-side
	// instead (original's cp [-h] SRC [-h] DST form).
	if len(rest) >= 2 && rest[len(rest)-2] == "-h" {
		hostDst = true
		rest = append(rest[:len(rest)-2], rest[len(rest)-1])
	}
	if len(rest) != 2 {
		fmt.Fprintln(os.Stderr, "cp: usage: cp [-h] SRC [-h] DST")
		return
	}
	src, dst := rest[0], rest[1]

	var data []byte
	if hostSrc {
		b, err := os.ReadFile(src)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cp:", err)
			return
		}
		data = b
	} else {
		fd, err := v.Open(src, fat.ModeRead)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cp:", err)
			return
		}
		for {
			chunk, err := v.Read(fd, 4096)
			if err != nil || len(chunk) == 0 {
				break
			}
			data = append(data, chunk...)
		}
		v.Close(fd)
	}

	if hostDst {
		if err := os.WriteFile(dst, data, 0644); err != nil {
			fmt.Fprintln(os.Stderr, "cp:", err)
		}
		return
	}
	fd, err := v.Open(dst, fat.ModeWrite)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cp:", err)
		return
	}
	defer v.Close(fd)
	v.Write(fd, data)
}

func runChmod(v *fat.Volume, args []string) {
	if len(args) != 3 || len(args[1]) < 2 {
		fmt.Fprintln(os.Stderr, "chmod: usage: chmod [+-]BITS FILE")
		return
	}
	mod := args[1][0]
	bits, err := strconv.Atoi(args[1][1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "chmod: invalid mode")
		return
	}
	if err := v.Chmod(args[2], bits, mod); err != nil {
		fmt.Fprintln(os.Stderr, "chmod:", err)
	}
}

func runLs(v *fat.Volume) {
	for _, e := range v.Ls() {
		fmt.Printf("%s\t%d\t%03o\n", e.NameString(), e.Size, e.Perm)
	}
}
