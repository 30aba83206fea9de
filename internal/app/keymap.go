package app

// Key binding constants used in handleKey.
const (
	KeyStartStop    = "ctrl+s"
	KeyPauseResume  = "ctrl+p"
	KeyClear        = "ctrl+x"
	KeyTidy         = "ctrl+f"
	KeyCopy         = "ctrl+y"
	KeySave         = "ctrl+w"
	KeyLanguage     = "ctrl+l"
	KeyNormalize    = "ctrl+n"
	KeyNoise        = "ctrl+r"
	KeyAutoSave     = "ctrl+a"
	KeyDarkMode     = "ctrl+d"
	KeyCtrlC        = "ctrl+c"
	KeyEsc          = "esc"
	KeyEnter        = "enter"
	KeyBackspace    = "backspace"
	KeyBackspaceAlt = "ctrl+h"
)
