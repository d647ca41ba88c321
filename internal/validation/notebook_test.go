package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{name: "empty title allowed", title: "", wantErr: false},
		{name: "normal title", title: "Meeting notes", wantErr: false},
		{name: "unicode title", title: "Заметки по физике ✎", wantErr: false},
		{name: "max length", title: strings.Repeat("a", MaxTitleLen), wantErr: false},
		{name: "too long", title: strings.Repeat("a", MaxTitleLen+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTitle(tt.title)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateHexColor(t *testing.T) {
	tests := []struct {
		name    string
		color   string
		wantErr bool
	}{
		{name: "valid lowercase", color: "#aabbcc", wantErr: false},
		{name: "valid uppercase", color: "#AABBCC", wantErr: false},
		{name: "valid digits", color: "#012345", wantErr: false},
		{name: "empty", color: "", wantErr: true},
		{name: "missing hash", color: "aabbcc", wantErr: true},
		{name: "short form not allowed", color: "#abc", wantErr: true},
		{name: "invalid chars", color: "#gghhii", wantErr: true},
		{name: "too long", color: "#aabbccdd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHexColor(tt.color)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{name: "valid", username: "alice_01", wantErr: false},
		{name: "empty", username: "", wantErr: true},
		{name: "too short", username: "ab", wantErr: true},
		{name: "too long", username: strings.Repeat("x", MaxUsernameLen+1), wantErr: true},
		{name: "invalid chars", username: "alice!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword("short"))
	assert.NoError(t, ValidatePassword("longenough1"))
}
