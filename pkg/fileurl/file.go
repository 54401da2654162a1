// Package fileurl 提供文件路径与对象存储 key 的辅助函数
package fileurl

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidKey returned when an object key escapes its root
// ErrInvalidKey 对象 key 越出根目录时返回
var ErrInvalidKey = errors.New("invalid object key")

// IsDir determines if the given path is a directory
// IsDir 判断所给路径是否为文件夹
func IsDir(p string) bool {
	s, err := os.Stat(p)
	if err != nil {
		return false
	}
	return s.IsDir()
}

// IsExist determines if the given path exists
// IsExist 判断所给路径是否存在
func IsExist(dst string) bool {
	_, err := os.Stat(dst)
	if err != nil {
		return os.IsExist(err)
	}
	return true
}

// CreatePath creates the parent directory of dst
// CreatePath 创建 dst 的父目录
func CreatePath(dst string, perm os.FileMode) error {
	return os.MkdirAll(filepath.Dir(dst), perm)
}

// PathSuffixCheckAdd checks path suffix, adds it if not exists
// PathSuffixCheckAdd 检查路径后缀，如果没有则添加
func PathSuffixCheckAdd(p string, suffix string) string {
	if !strings.HasSuffix(p, suffix) {
		p = p + suffix
	}
	return p
}

// JoinKey prefixes key with an optional custom path, rejecting keys that climb out of it.
// JoinKey 为对象 key 拼接自定义前缀，拒绝包含 ".." 越界的 key
func JoinKey(prefix, key string) (string, error) {
	key = strings.TrimLeft(strings.ReplaceAll(key, "\\", "/"), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", ErrInvalidKey
		}
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return path.Clean(key), nil
	}
	return path.Join(prefix, key), nil
}
