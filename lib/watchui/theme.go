// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the viewer. All colors are ANSI
// 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected conversation row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	HeaderForeground lipgloss.Color
	UserForeground   lipgloss.Color
	UnreadForeground lipgloss.Color
	TypingForeground lipgloss.Color
	ErrorForeground  lipgloss.Color

	BorderColor lipgloss.Color
	HelpText    lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	HeaderForeground: lipgloss.Color("255"),
	UserForeground:   lipgloss.Color("80"),  // teal
	UnreadForeground: lipgloss.Color("75"),  // blue
	TypingForeground: lipgloss.Color("114"), // green
	ErrorForeground:  lipgloss.Color("196"), // red

	BorderColor: lipgloss.Color("240"),
	HelpText:    lipgloss.Color("241"),
}
