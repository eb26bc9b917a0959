package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode is the --ui setting. The zero value behaves like auto.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	m := uiMode(strings.ToLower(strings.TrimSpace(value)))
	switch m {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return m, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// shouldUseTUI reports whether to draw the progress view. Auto draws it for
// several fixtures on a terminal.
func shouldUseTUI(mode uiMode, fixtures int) bool {
	if mode == uiModeOn || mode == uiModeOff {
		return mode == uiModeOn
	}
	return fixtures > 1 && isTerminal(os.Stdout)
}
