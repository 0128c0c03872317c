//go:build ignore

// build.go - feeddiff build system
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, feeddiff, server, test, clean

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "feeddiff"

var (
	distDir = "dist"

	// key = directory under cmd/, value = output binary name
	executables = map[string]string{
		"feeddiff": "feeddiff",
		"server":   "feeddiff-server",
	}

	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	printHeader()
	start := time.Now()

	var err error
	switch *target {
	case "all":
		for _, name := range []string{"feeddiff", "server"} {
			if err = buildExecutable(name, *verbose); err != nil {
				break
			}
		}
	case "feeddiff", "server":
		err = buildExecutable(*target, *verbose)
	case "test":
		err = runTests(*verbose)
	case "clean":
		err = clean()
	default:
		printError(fmt.Sprintf("Unknown target: %s", *target))
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Target %s finished in %s", *target, time.Since(start).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "        feeddiff - Build System            " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func buildExecutable(name string, verbose bool) error {
	binName := executables[name]
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	printInfo(fmt.Sprintf("Building %s...", name))

	outputPath := filepath.Join(distDir, binName)
	ldflags := fmt.Sprintf("-s -w -X %s/internal/app.BuildTime=%s", module, time.Now().UTC().Format(time.RFC3339))

	args := []string{"build"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "-ldflags", ldflags, "-o", outputPath, "./cmd/"+name)

	if err := run(verbose, "go", args...); err != nil {
		return fmt.Errorf("failed to build %s: %w", name, err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", binName, float64(info.Size())/1024/1024))
	}
	return nil
}

func runTests(verbose bool) error {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	if err := run(true, "go", args...); err != nil {
		return fmt.Errorf("go tests failed: %w", err)
	}
	return nil
}

func clean() error {
	printInfo("Cleaning build artifacts...")
	for _, dir := range []string{distDir, "reports", "logs"} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clean %s: %w", dir, err)
		}
	}
	return nil
}

func run(stream bool, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if stream {
		fmt.Printf("Running: %s %s\n", name, strings.Join(args, " "))
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=<target> [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all       build feeddiff and feeddiff-server into dist/")
	fmt.Println("  feeddiff  build the command line tool")
	fmt.Println("  server    build the HTTP service")
	fmt.Println("  test      run go test -race ./...")
	fmt.Println("  clean     remove dist/, reports/ and logs/")
}
