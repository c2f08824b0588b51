package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bitmark-inc/autonomy-rt/schema"
)

//go:generate mockgen -source=fetch.go -destination=../mocks/fetcher.go -package=mocks

// Fetcher - opens a raw source by location, an http(s) URL or a local path
type Fetcher interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

type fetcher struct {
	client *http.Client
}

// NewFetcher returns a fetcher using client for remote locations. The
// default client follows redirects.
func NewFetcher(client *http.Client) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &fetcher{client: client}
}

func (f fetcher) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if isRemote(location) {
		return f.get(ctx, location)
	}

	path := strings.TrimPrefix(location, "file://")
	file, err := os.Open(path)
	if nil != err {
		log.WithFields(log.Fields{"prefix": logPrefix, "path": path, "error": err}).Error("open local source")
		return nil, schema.NewError(schema.KindDataUnavailable, "open "+path, err)
	}
	return file, nil
}

func (f fetcher) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if nil != err {
		return nil, schema.NewError(schema.KindDataUnavailable, "request "+url, err)
	}

	resp, err := f.client.Do(req)
	if nil != err {
		log.WithFields(log.Fields{"prefix": logPrefix, "url": url, "error": err}).Error("get source")
		return nil, schema.NewError(schema.KindDataUnavailable, "get "+url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		log.WithFields(log.Fields{"prefix": logPrefix, "url": url, "status": resp.StatusCode}).Error("get source")
		return nil, schema.NewError(schema.KindDataUnavailable, "get "+url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	return resp.Body, nil
}

func isRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// ReadAll opens a location and reads it fully. When saveTo is not empty a
// copy of the raw payload replaces whatever is at that path.
func ReadAll(ctx context.Context, f Fetcher, location, saveTo string) ([]byte, error) {
	body, err := f.Open(ctx, location)
	if nil != err {
		return nil, err
	}
	defer body.Close()

	data, err := ioutil.ReadAll(body)
	if nil != err {
		log.WithFields(log.Fields{"prefix": logPrefix, "location": location, "error": err}).Error("read source")
		return nil, schema.NewError(schema.KindDataUnavailable, "read "+location, err)
	}

	if saveTo != "" {
		if err := SaveCopy(data, saveTo); nil != err {
			log.WithFields(log.Fields{"prefix": logPrefix, "path": saveTo, "error": err}).Warn("keep raw copy")
		}
	}

	return data, nil
}

// SaveCopy atomically replaces the file at path with data.
func SaveCopy(data []byte, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); nil != err {
		return errors.Wrap(err, "create copy dir")
	}

	tmp, err := ioutil.TempFile(dir, ".download-*")
	if nil != err {
		return errors.Wrap(err, "create temp copy")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); nil != err {
		tmp.Close()
		return errors.Wrap(err, "write temp copy")
	}
	if err := tmp.Close(); nil != err {
		return errors.Wrap(err, "close temp copy")
	}

	if err := os.Remove(path); nil != err && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove previous copy")
	}
	return os.Rename(tmp.Name(), path)
}
