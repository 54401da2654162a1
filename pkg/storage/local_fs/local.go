package local_fs

import (
	"github.com/haierkeys/contract-version-service/pkg/fileurl"
)

type Config struct {
	SavePath   string `yaml:"save-path" default:"storage/archive"`
	CustomPath string `yaml:"custom-path"`
}

type LocalFS struct {
	Config *Config
}

func NewClient(cf *Config) (*LocalFS, error) {
	if cf.SavePath == "" {
		cf.SavePath = "storage/archive"
	}
	return &LocalFS{Config: cf}, nil
}

// path 返回 key 对应的本地文件路径
func (p *LocalFS) path(fileKey string) (string, error) {
	key, err := fileurl.JoinKey(p.Config.CustomPath, fileKey)
	if err != nil {
		return "", err
	}
	return fileurl.PathSuffixCheckAdd(p.Config.SavePath, "/") + key, nil
}
