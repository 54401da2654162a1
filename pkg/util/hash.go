package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
)

// ErrEmptyContent returned when there is nothing to hash
// ErrEmptyContent 内容为空时返回
var ErrEmptyContent = errors.New("content is empty")

// EncodeSHA256 returns the hex SHA-256 digest of data
// EncodeSHA256 返回 data 的 SHA-256 十六进制摘要
// data: content to hash, must not be empty
// data: 待计算的内容，不能为空
func EncodeSHA256(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyContent
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// EncodeSHA256Reader streams r into a SHA-256 digest
// EncodeSHA256Reader 以流的方式计算 r 的 SHA-256 摘要
// 返回值: 摘要, 读取字节数, 错误
func EncodeSHA256Reader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	if n == 0 {
		return "", 0, ErrEmptyContent
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// EncodeSHA256String 对字符串计算 SHA-256，空字符串同样计算
func EncodeSHA256String(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
