package storage

import (
	"os"
	"path/filepath"
)

// DiskUsageBytes sums the on-disk footprint of the given paths, typically the
// database file and the rendered-output directory. Directories are walked
// recursively. A path that does not exist yet, such as the output directory
// before the first render, counts as zero.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		switch {
		case os.IsNotExist(err):
			continue
		case err != nil:
			return 0, err
		case !info.IsDir():
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
