package xunit

import (
	"errors"
	"io/fs"
	"path/filepath"
)

// AttachmentDir is the attachments subdirectory of a case: "{classname}.{name}".
func AttachmentDir(c Case) string {
	name, _ := c.Name()
	return c.ClassName + "." + name
}

// FindAttachments lists the files to upload for a case, first those under
// {payload}/attachments/{xmlName}/{dir}, then those under
// {payload}/attachments/{dir}. Missing directories are skipped.
func FindAttachments(payloadDir, xmlName, dir string) ([]string, error) {
	root := filepath.Join(payloadDir, "attachments")
	var files []string
	for _, base := range []string{
		filepath.Join(root, xmlName, dir),
		filepath.Join(root, dir),
	} {
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
