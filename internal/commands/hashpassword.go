package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/ums-math/ums-site/internal/app"
	"golang.org/x/term"
)

var errInterrupted = errors.New("interrupted")

// HashPasswordOptions are the flags of the hash-password subcommand
type HashPasswordOptions struct {
	AuthFile       string // "" = auth.secret next to the binary
	Overwrite      bool
	InsecureUnmask bool
}

// HashPassword prompts for credentials and writes the auth file that protects
// the admin endpoints.
func HashPassword(opts HashPasswordOptions) error {
	authFile, err := app.ResolveAuthFile(opts.AuthFile)
	if err != nil {
		return err
	}

	fmt.Print("Enter username: ")
	var username string
	if _, err := fmt.Scanln(&username); err != nil {
		return fmt.Errorf("error reading username: %w", err)
	}
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	var password, passwordConfirm string
	if opts.InsecureUnmask {
		fmt.Fprintf(os.Stderr, "WARNING: Password will be visible on screen!\n")
		fmt.Print("Enter password:   ")
		if _, err := fmt.Scanln(&password); err != nil {
			return fmt.Errorf("error reading password: %w", err)
		}

		fmt.Print("Confirm password: ")
		if _, err := fmt.Scanln(&passwordConfirm); err != nil {
			return fmt.Errorf("error reading password confirmation: %w", err)
		}
	} else {
		if password, err = readPasswordWithMask("Enter password:   "); err != nil {
			return err
		}
		if passwordConfirm, err = readPasswordWithMask("Confirm password: "); err != nil {
			return err
		}
	}

	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if password != passwordConfirm {
		return fmt.Errorf("passwords do not match")
	}

	return app.CreateAuthFile(authFile, username, password, opts.Overwrite, os.Stdin, os.Stdout)
}

// readPasswordWithMask reads password input and displays asterisks
func readPasswordWithMask(prompt string) (string, error) {
	fmt.Print(prompt)

	oldState, err := term.GetState(int(syscall.Stdin))
	if err != nil {
		// Not a terminal: fall back to hidden input
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		return string(password), err
	}
	defer term.Restore(int(syscall.Stdin), oldState)

	if _, err := term.MakeRaw(int(syscall.Stdin)); err != nil {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		return string(password), err
	}

	var password []byte
	reader := bufio.NewReader(os.Stdin)

	for {
		char, _, err := reader.ReadRune()
		if err != nil {
			break
		}

		switch char {
		case '\n', '\r':
			fmt.Print("\r\n")
			return string(password), nil
		case 127, 8: // Backspace or Delete
			if len(password) > 0 {
				password = password[:len(password)-1]
				fmt.Print("\b \b")
			}
		case 3: // Ctrl+C
			fmt.Print("\r\n")
			return "", errInterrupted
		default:
			if char >= 32 && char <= 126 {
				password = append(password, byte(char))
				fmt.Print("*")
			}
		}
	}

	fmt.Print("\r\n")
	return string(password), nil
}
