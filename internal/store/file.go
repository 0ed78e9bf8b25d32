package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
)

// File is a Store backed by a JSON file. Every mutation is committed to
// disk immediately, mirroring the auto-commit behavior of on-device
// preference storage.
type File struct {
	path   string
	values map[string]string
}

// OpenFile loads an existing store file or starts an empty one.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &f.values); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *File) Put(key, value string) error {
	f.values[key] = value
	return f.commit()
}

func (f *File) Remove(key string) error {
	delete(f.values, key)
	return f.commit()
}

func (f *File) Clear() error {
	f.values = make(map[string]string)
	return f.commit()
}

func (f *File) commit() error {
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}
