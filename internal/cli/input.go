package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

func GetSimpleText(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Println(prompt)
	text, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// GetOptionalInt reads an integer, returning fallback on empty input.
func GetOptionalInt(reader *bufio.Reader, prompt string, fallback int) (int, error) {
	text, err := GetSimpleText(reader, fmt.Sprintf("%s [%d]", prompt, fallback))
	if err != nil {
		return 0, err
	}
	if text == "" {
		return fallback, nil
	}
	return strconv.Atoi(text)
}

// GetPassword reads a password from the terminal without echo.
func GetPassword(prompt string) ([]byte, error) {
	fmt.Println(prompt)
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return pw, err
}
