package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/rohankatakam/octonet/internal/errors"
)

// TokenSource names where a resolved token came from
type TokenSource string

const (
	TokenSourceFlag     TokenSource = "flag"
	TokenSourceConfig   TokenSource = "config" // config file or GITHUB_TOKEN / GH_TOKEN
	TokenSourceKeychain TokenSource = "keychain"
)

// TokenStore is the part of KeyringManager token resolution needs
type TokenStore interface {
	GetGitHubToken() (string, error)
}

// ResolveToken picks the GitHub token with priority:
// flag → environment/config file → OS keychain.
// store may be nil when no keychain should be consulted.
func ResolveToken(flagToken string, cfg *Config, store TokenStore) (string, TokenSource, error) {
	if flagToken != "" {
		return flagToken, TokenSourceFlag, nil
	}

	if cfg != nil && cfg.GitHub.Token != "" {
		return cfg.GitHub.Token, TokenSourceConfig, nil
	}

	if store != nil {
		token, err := store.GetGitHubToken()
		if err != nil {
			return "", "", errors.Wrap(err, errors.KindConfig, "failed to read GitHub token from keychain")
		}
		if token != "" {
			return token, TokenSourceKeychain, nil
		}
	}

	return "", "", errors.ConfigErrorf(
		"GitHub token not found. Set it via:\n" +
			"  1. Environment variable: export GITHUB_TOKEN=ghp_...\n" +
			"  2. Run: octonet login (stores it in the OS keychain)\n" +
			"  3. Flag: --token")
}

// ReadToken reads a token from in without echoing when in is a terminal,
// falling back to a plain line read for piped input.
func ReadToken(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(out) // New line after hidden input
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
