package filestore

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/dreamspace/internal/domain"
)

func TestArtifactNames(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^generated_[0-9a-f]{8}\.png$`), GeneratedName())
	assert.Regexp(t, regexp.MustCompile(`^canvas_[0-9a-f]{8}\.png$`), CanvasName())
	assert.Regexp(t, regexp.MustCompile(`^furniture_[0-9a-f]{8}\.png$`), FurnitureName())
	assert.NotEqual(t, GeneratedName(), GeneratedName())
}

func TestUploadName(t *testing.T) {
	name, err := UploadName("../../My Living Room.JPG")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}_My_Living_Room\.JPG$`), name)

	_, err = UploadName("notes.txt")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = UploadName("noextension")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"photo.png":              "photo.png",
		"../../etc/passwd":       "etc_passwd",
		`C:\Users\me\room 1.jpg`: "C_Users_me_room_1.jpg",
		"..hidden.gif":           "hidden.gif",
		"snap(1)!.bmp":           "snap1.bmp",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}
