package actors

import (
	"errors"
	"os"
	"path/filepath"

	"timelock/engine/library"
)

// ReadFlatFile returns the contents of <rootDir>/<flatFileDir>/<mind>/<db>.dat.
// A missing file is not an error.
func ReadFlatFile(mind, db string) ([]byte, bool, error) {
	b, err := os.ReadFile(filepath.Join(directory(mind), db+".dat"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// WriteFlatFile replaces <mind>/<db>.dat. The new contents are written to a
// temporary file first and renamed into place.
func WriteFlatFile(mind, db string, b []byte) error {
	if err := os.MkdirAll(directory(mind), 0755); err != nil {
		return err
	}
	final := filepath.Join(directory(mind), db+".dat")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

func directory(mind string) string {
	dir := MakeOrGetConfig().GetString("rootDir")
	dir = filepath.Join(dir, MakeOrGetConfig().GetString("flatFileDir"))
	return filepath.Join(dir, mind)
}

func touch(name string) {
	f, err := os.OpenFile(name, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		library.LogCLI(err.Error(), 0)
		return
	}
	f.Close()
}
