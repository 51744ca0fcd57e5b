// Package scan finds session logs on disk.
package scan

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

type FileInfo struct {
	Path  string
	Mtime int64 // unix nanoseconds
	Size  int64
}

// ModTime returns the modification time.
func (f FileInfo) ModTime() time.Time {
	return time.Unix(0, f.Mtime)
}

// Scan returns every *.jsonl file under root. A missing root yields no
// files and no error; unreadable directories are skipped.
func Scan(root string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable dirs
		}
		if info.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".jsonl" {
			return nil
		}
		files = append(files, FileInfo{
			Path:  path,
			Mtime: info.ModTime().UnixNano(),
			Size:  info.Size(),
		})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return files, nil
}

// Recent returns the files under root ordered newest first.
func Recent(root string) ([]FileInfo, error) {
	files, err := Scan(root)
	if err != nil {
		return nil, err
	}
	SortNewest(files)
	return files, nil
}

// SortNewest orders files by modification time, newest first. Ties keep
// path order.
func SortNewest(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Mtime != files[j].Mtime {
			return files[i].Mtime > files[j].Mtime
		}
		return files[i].Path < files[j].Path
	})
}
