package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	logPrefix = "archive"
	extension = ".zip"
)

var (
	ErrInsideOutput = fmt.Errorf("archive path inside output root")
	ErrNotDirectory = fmt.Errorf("output root is not a directory")
)

// Name returns the archive path of a run made on date (YYYY-MM-DD).
func Name(root, date, label string) string {
	return filepath.Join(root, date+"-"+label+extension)
}

// Package zips every regular file under outputRoot into archivePath and
// returns the entry names in the order they were written. Entry names are
// slash separated paths relative to outputRoot. An existing archive at
// archivePath is replaced.
func Package(outputRoot, archivePath string) ([]string, error) {
	root, err := filepath.Abs(outputRoot)
	if nil != err {
		return nil, err
	}
	target, err := filepath.Abs(archivePath)
	if nil != err {
		return nil, err
	}
	if inside(root, target) {
		return nil, errors.Wrapf(ErrInsideOutput, "%s in %s", archivePath, outputRoot)
	}

	info, err := os.Stat(root)
	if nil != err {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.Wrap(ErrNotDirectory, outputRoot)
	}

	if err := os.Remove(target); nil != err && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "remove previous archive")
	}

	entries, err := collect(root)
	if nil != err {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); nil != err {
		return nil, err
	}
	if err := write(root, target, entries); nil != err {
		return nil, err
	}

	log.WithFields(log.Fields{
		"prefix":  logPrefix,
		"archive": archivePath,
		"entries": len(entries),
	}).Info("archive written")

	return entries, nil
}

func inside(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if nil != err {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// collect returns the sorted slash separated relative paths of the regular
// files under root.
func collect(root string) ([]string, error) {
	entries := make([]string, 0)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if nil != err {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if nil != err {
			return err
		}
		entries = append(entries, filepath.ToSlash(rel))
		return nil
	})
	if nil != err {
		return nil, errors.Wrap(err, "scan output root")
	}

	sort.Strings(entries)
	return entries, nil
}

func write(root, target string, entries []string) error {
	tmp, err := ioutil.TempFile(filepath.Dir(target), ".archive-*.tmp")
	if nil != err {
		return err
	}
	defer os.Remove(tmp.Name())

	zw := zip.NewWriter(tmp)
	for _, entry := range entries {
		if err := add(zw, root, entry); nil != err {
			tmp.Close()
			return errors.Wrap(err, entry)
		}
	}

	if err := zw.Close(); nil != err {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); nil != err {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func add(zw *zip.Writer, root, entry string) error {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(entry)))
	if nil != err {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if nil != err {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if nil != err {
		return err
	}
	header.Name = entry
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if nil != err {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
