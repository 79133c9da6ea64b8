// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package definition

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter/v2"
	"github.com/matt-FFFFFF/sysbatch/internal/config"
	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/spf13/afero"
)

// ErrGetDefinitionFile is returned when the definition file cannot be fetched.
var ErrGetDefinitionFile = errors.New("failed to get definition file")

const forcedFilePrefix = "file::"

// source is a --file value resolved into what to fetch.
type source struct {
	local    string // Absolute path of a local file, empty for remote sources
	getter   string // go-getter URL of the directory holding the file
	fileName string
}

// resolve decides whether url is a local file or a go-getter URL.
// Remote files are fetched as their directory, see https://github.com/hashicorp/go-getter/issues/98.
func resolve(url, wd string) (source, error) {
	if url == "" {
		return source{}, ErrGetDefinitionFile
	}

	req := &getter.Request{Src: url, Pwd: wd}

	ok, err := getter.Detect(req, &getter.FileGetter{})
	if err != nil {
		return source{}, errors.Join(ErrGetDefinitionFile, err)
	}

	if ok {
		p := strings.TrimPrefix(url, forcedFilePrefix)
		if !filepath.IsAbs(p) {
			p = filepath.Join(wd, p)
		}

		return source{local: filepath.Clean(p), fileName: filepath.Base(p)}, nil
	}

	dir, fileName := splitFileNameFromGetterURL(url)
	if dir == "" || fileName == "" {
		return source{}, fmt.Errorf("%w: invalid URL format: %s", ErrGetDefinitionFile, url)
	}

	return source{getter: dir, fileName: fileName}, nil
}

// fetchDefinition loads the definition named by url. The extension is checked
// before anything is downloaded. Local files are read through config.FsFactory.
func fetchDefinition(ctx context.Context, url string, vars config.Vars) (*config.Definition, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Join(ErrGetDefinitionFile, err)
	}

	src, err := resolve(url, wd)
	if err != nil {
		return nil, err
	}

	if !config.Supported(src.fileName) {
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, url)
	}

	if src.local != "" {
		ctxlog.Debug(ctx, "reading local definition", "path", src.local)

		def, err := config.Load(ctx, src.local, vars)
		if errors.Is(err, config.ErrReadDefinition) {
			return nil, errors.Join(ErrGetDefinitionFile, err)
		}

		return def, err
	}

	data, err := download(ctx, src, wd)
	if err != nil {
		return nil, err
	}

	return config.Parse(ctx, data, src.fileName, vars)
}

// download fetches the directory of a remote definition into a temporary
// directory, which is removed once the file is read.
func download(ctx context.Context, src source, wd string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "sysbatch-getter-*")
	if err != nil {
		return nil, errors.Join(ErrGetDefinitionFile, err)
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	ctxlog.Debug(ctx, "fetching definition", "url", src.getter, "file", src.fileName)

	client := getter.Client{DisableSymlinks: true}

	res, err := client.Get(ctx, &getter.Request{
		Src:     src.getter,
		Dst:     filepath.Join(tmpDir, "g"),
		Pwd:     wd,
		GetMode: getter.ModeDir,
	})
	if err != nil {
		return nil, errors.Join(ErrGetDefinitionFile, err)
	}

	data, err := afero.ReadFile(afero.NewOsFs(), filepath.Join(res.Dst, src.fileName))
	if err != nil {
		return nil, errors.Join(ErrGetDefinitionFile, err)
	}

	return data, nil
}

const (
	goGetterPathSeparator = "//"
	goGetterRefSeparator  = "?"
	minimumGetterParts    = 3 // scheme, host and path
)

// splitFileNameFromGetterURL splits a go-getter URL into the URL of its
// directory and the file name, keeping any query such as ?ref=.
func splitFileNameFromGetterURL(url string) (string, string) {
	var ref string

	parts := strings.Split(url, goGetterPathSeparator)
	if len(parts) < minimumGetterParts {
		return "", ""
	}

	last := parts[len(parts)-1]

	if before, after, ok := strings.Cut(last, goGetterRefSeparator); ok {
		ref = after
		last = before
	}

	if filepath.Clean(last) == filepath.Dir(last) {
		return "", ""
	}

	fileName := filepath.Base(last)
	parts[len(parts)-1] = filepath.Dir(last)

	if parts[len(parts)-1] == "." {
		parts = parts[:len(parts)-1]
	}

	newURL := strings.Join(parts, goGetterPathSeparator)

	if ref != "" {
		newURL += goGetterRefSeparator + ref
	}

	return newURL, fileName
}
