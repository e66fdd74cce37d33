package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength matches the login form rule.
const MinPasswordLength = 8

// HashPasswordOptions defines inputs for the hash-password command.
type HashPasswordOptions struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Cost   int
}

// HashPasswordCommand reads a password from the first line of stdin and prints
// its bcrypt hash for seeding the users table.
func HashPasswordCommand(opts HashPasswordOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	if opts.Stdin == nil {
		_, _ = fmt.Fprintln(stderr, "hash-password: stdin required")
		return 1
	}
	line, err := bufio.NewReader(opts.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		_, _ = fmt.Fprintf(stderr, "hash-password: read: %v\n", err)
		return 1
	}
	password := strings.TrimRight(line, "\r\n")
	if len(password) < MinPasswordLength {
		_, _ = fmt.Fprintf(stderr, "hash-password: password must be at least %d characters\n", MinPasswordLength)
		return 1
	}
	cost := opts.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "hash-password: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(stdout, string(hashed))
	return 0
}
