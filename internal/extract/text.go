package extract

import (
	"context"
	"os"
)

// TextExtractor returns a file's raw contents.
type TextExtractor struct{}

func (TextExtractor) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
