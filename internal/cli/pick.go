package cli

import (
	"errors"

	"github.com/ncruces/zenity"
)

// ErrPickCanceled is returned when the user dismisses a picker.
var ErrPickCanceled = errors.New("selection canceled")

// imagePatterns are the still formats a replay source can decode.
var imagePatterns = []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp"}

// PickStill shows a native dialog to choose a replay source: a single image,
// or with directory set, a folder of images.
func PickStill(directory bool) (string, error) {
	var (
		path string
		err  error
	)
	if directory {
		path, err = zenity.SelectFile(
			zenity.Directory(),
			zenity.Title("Select a folder of images to replay"),
		)
	} else {
		path, err = zenity.SelectFile(
			zenity.Title("Select an image to replay"),
			zenity.FileFilters{
				{Name: "Images", Patterns: imagePatterns},
			},
		)
	}
	if errors.Is(err, zenity.ErrCanceled) {
		return "", ErrPickCanceled
	}
	return path, err
}

// PickSavePath shows a native save dialog for an export archive.
func PickSavePath(defaultName string) (string, error) {
	path, err := zenity.SelectFileSave(
		zenity.Title("Save session export"),
		zenity.Filename(defaultName),
		zenity.ConfirmOverwrite(),
		zenity.FileFilters{
			{Name: "ZIP archives", Patterns: []string{"*.zip"}},
		},
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return "", ErrPickCanceled
	}
	return path, err
}
