//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

const (
	BINARY_NAME = "../bin/chat-relay"
	MAIN_PATH   = "../cmd/server/main.go"
)

func Build() error {
	fmt.Println("🔨 Building server binary...")
	return runCmd("go", "build", "-o", BINARY_NAME, MAIN_PATH)
}

func Run() error {
	mg.Deps(Build)
	fmt.Println("🚀 Starting chat relay...")
	return runCmd(BINARY_NAME)
}

func Test() error {
	fmt.Println("🧪 Running tests...")
	return runCmd("go", "test", "-race", "../...")
}

func Vet() error {
	fmt.Println("🔍 Vetting...")
	return runCmd("go", "vet", "../...")
}

func Clean() {
	fmt.Println("🧹 Cleaning up...")
	os.Remove(BINARY_NAME)
}

func runCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
