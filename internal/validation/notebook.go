package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// HexColorPattern допустимый формат цвета обложки и фона страницы: #RRGGBB
var HexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// MaxTitleLen максимальная длина названия тетради
const MaxTitleLen = 128

// ValidateTitle проверяет название тетради.
// Пустое название допустимо (UI показывает "Untitled"), но длина ограничена.
func ValidateTitle(title string) error {
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLen)
	}
	return nil
}

// ValidateHexColor проверяет формат цвета #RRGGBB
func ValidateHexColor(color string) error {
	if color == "" {
		return fmt.Errorf("color cannot be empty")
	}
	if !HexColorPattern.MatchString(color) {
		return fmt.Errorf("color must be in #RRGGBB format, got %q", color)
	}
	return nil
}
