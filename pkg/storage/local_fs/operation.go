package local_fs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/haierkeys/contract-version-service/pkg/fileurl"
	"github.com/pkg/errors"
)

// SendContent 写入内容，先写临时文件再重命名，避免读到半截文件
func (p *LocalFS) SendContent(_ context.Context, fileKey string, content []byte) (string, error) {
	dst, err := p.path(fileKey)
	if err != nil {
		return "", errors.Wrap(err, "local_fs")
	}
	if err := fileurl.CreatePath(dst, os.ModePerm); err != nil {
		return "", errors.Wrap(err, "local_fs")
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", errors.Wrap(err, "local_fs")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", errors.Wrap(err, "local_fs")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "local_fs")
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", errors.Wrap(err, "local_fs")
	}
	return dst, nil
}

func (p *LocalFS) GetContent(_ context.Context, fileKey string) ([]byte, error) {
	dst, err := p.path(fileKey)
	if err != nil {
		return nil, errors.Wrap(err, "local_fs")
	}
	b, err := os.ReadFile(dst)
	return b, errors.Wrap(err, "local_fs")
}

func (p *LocalFS) Exists(_ context.Context, fileKey string) (bool, error) {
	dst, err := p.path(fileKey)
	if err != nil {
		return false, errors.Wrap(err, "local_fs")
	}
	return fileurl.IsExist(dst), nil
}

func (p *LocalFS) Delete(_ context.Context, fileKey string) error {
	dst, err := p.path(fileKey)
	if err != nil {
		return errors.Wrap(err, "local_fs")
	}
	if fileurl.IsExist(dst) {
		return os.Remove(dst)
	}
	return nil
}
