// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package util 命令行使用的文件读写工具
package util

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

//ReadFile : read file
func ReadFile(file string) ([]byte, error) {
	fileCont, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read file %s", file)
	}
	return fileCont, nil
}

//CheckFileIsExist : check whether the file exists or not
func CheckFileIsExist(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

//MakeDir 创建文件所在的目录
func MakeDir(file string) error {
	dir := filepath.Dir(file)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, os.ModePerm)
}

//WriteStringToFile : write content to file, 已存在的文件被覆盖
func WriteStringToFile(file, content string) (writeLen int, err error) {
	if err = MakeDir(file); err != nil {
		return
	}
	f, err := os.Create(file)
	if err != nil {
		return
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	writeLen, err = w.WriteString(content)
	if err != nil {
		return
	}
	err = w.Flush()
	return
}
