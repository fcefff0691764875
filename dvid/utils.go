package dvid

import (
	"fmt"
	"path/filepath"
)

// Mega is the number of bytes in a mebibyte.
const Mega = 1 << 20

// ConvertToAbsolute returns path unchanged if it is absolute, else joined to dir.
// An empty path stays empty.
func ConvertToAbsolute(path, dir string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return path, nil
	}
	abs, err := filepath.Abs(filepath.Join(dir, path))
	if err != nil {
		return "", fmt.Errorf("unable to make %q absolute: %v", path, err)
	}
	return abs, nil
}
