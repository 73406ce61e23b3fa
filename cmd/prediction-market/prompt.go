package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"
)

const (
	minPasswordLen = 8
	passwordEnvVar = "PM_DEVWALLET_PASSWORD"
)

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func isAllowedPasswordChar(b byte) bool {
	return b >= 0x21 && b <= 0x7e
}

func validatePassword(pw []byte) error {
	if len(pw) < minPasswordLen {
		return errors.Newf("password must be at least %d characters long", minPasswordLen)
	}
	for _, b := range pw {
		if !isAllowedPasswordChar(b) {
			return errors.New("password contains invalid characters (use letters, numbers, and special characters only)")
		}
	}
	return nil
}

func promptPassword(prompt string) ([]byte, error) {
	_, _ = fmt.Fprint(os.Stderr, prompt)

	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(os.Stderr)

	if err != nil {
		zeroBytes(pw)
		return nil, errors.Wrap(err, "password input failed")
	}
	if err := validatePassword(pw); err != nil {
		zeroBytes(pw)
		return nil, err
	}
	return pw, nil
}

func promptNewPassword() ([]byte, error) {
	pw, err := promptPassword("New keystore password: ")
	if err != nil {
		return nil, err
	}
	confirm, err := promptPassword("Repeat password: ")
	if err != nil {
		zeroBytes(pw)
		return nil, err
	}
	defer zeroBytes(confirm)

	if !bytes.Equal(pw, confirm) {
		zeroBytes(pw)
		return nil, errors.New("passwords do not match")
	}
	return pw, nil
}

// keystorePassword takes the password from PM_DEVWALLET_PASSWORD, or asks for it on a terminal.
func keystorePassword(confirm bool) ([]byte, error) {
	if env := os.Getenv(passwordEnvVar); env != "" {
		pw := []byte(env)
		if err := validatePassword(pw); err != nil {
			return nil, errors.Wrap(err, passwordEnvVar)
		}
		return pw, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.Newf("no terminal for password input; set %s", passwordEnvVar)
	}
	if confirm {
		return promptNewPassword()
	}
	return promptPassword("Keystore password: ")
}
