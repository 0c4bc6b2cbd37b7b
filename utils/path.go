package utils

import (
	"path/filepath"

	"github.com/kardianos/osext"
)

// ExecDir 当前可执行程序所在目录，获取失败时返回空字符串
func ExecDir() string {
	path, err := osext.ExecutableFolder()
	if err != nil {
		return ""
	}
	return path
}

// ExecPath 把 elem 拼接到可执行程序所在目录下
func ExecPath(elem ...string) string {
	return filepath.Join(append([]string{ExecDir()}, elem...)...)
}
