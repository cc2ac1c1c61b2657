package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatbox/internal/bus"
)

// Theme is the chatbox palette.
type Theme struct {
	BgColor     tcell.Color
	FgColor     tcell.Color
	BorderColor tcell.Color
	TitleColor  tcell.Color

	TableHeaderFg tcell.Color
	TableHeaderBg tcell.Color
	TableCursorFg tcell.Color
	TableCursorBg tcell.Color

	MenuKeyColor      tcell.Color
	NumericKeyColor   tcell.Color
	CounterColor      tcell.Color
	PromptBorderColor tcell.Color

	// Message thread.
	LocalSenderColor  tcell.Color
	RemoteSenderColor tcell.Color
	SendingColor      tcell.Color
	FailedColor       tcell.Color

	Flash map[bus.Level]tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:     tcell.ColorBlack,
		FgColor:     tcell.ColorSilver,
		BorderColor: tcell.ColorTeal,
		TitleColor:  tcell.ColorMediumSpringGreen,

		TableHeaderFg: tcell.ColorWhite,
		TableHeaderBg: tcell.ColorBlack,
		TableCursorFg: tcell.ColorBlack,
		TableCursorBg: tcell.ColorMediumSpringGreen,

		MenuKeyColor:      tcell.ColorTeal,
		NumericKeyColor:   tcell.ColorGold,
		CounterColor:      tcell.ColorPapayaWhip,
		PromptBorderColor: tcell.ColorTeal,

		LocalSenderColor:  tcell.ColorMediumSeaGreen,
		RemoteSenderColor: tcell.ColorLightSkyBlue,
		SendingColor:      tcell.ColorGray,
		FailedColor:       tcell.ColorOrangeRed,

		Flash: map[bus.Level]tcell.Color{
			bus.LevelInfo:  tcell.ColorNavajoWhite,
			bus.LevelWarn:  tcell.ColorOrange,
			bus.LevelError: tcell.ColorOrangeRed,
		},
	}
}

// FlashColor returns the color for a notice level, falling back to info.
func (t *Theme) FlashColor(level bus.Level) tcell.Color {
	if c, ok := t.Flash[level]; ok {
		return c
	}
	return t.Flash[bus.LevelInfo]
}

// ColorTag returns c as a tview color tag name.
func ColorTag(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
