package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"unicode/utf8"
)

var (
	// ErrInvalidEncoding 请求体不是合法的UTF-8
	ErrInvalidEncoding = errors.New("document is not valid utf-8")
	// ErrInvalidDocument 请求体不是合法的JSON
	ErrInvalidDocument = errors.New("document is not valid json")
)

const indent = "  "

// DocumentStore 单个JSON文档的磁盘存储
//
// 每次保存都整体覆盖目标文件，不做版本管理，也不做原子替换。
// 父目录必须已经存在。
type DocumentStore struct {
	path string
	mu   sync.Mutex
}

// NewDocumentStore 创建文档存储
func NewDocumentStore(path string) *DocumentStore {
	return &DocumentStore{path: path}
}

// Path 文档在磁盘上的路径
func (s *DocumentStore) Path() string {
	return s.path
}

// Format 校验并以两个空格缩进重新排版JSON
//
// 保留键顺序与数字字面量，\uXXXX 转义写成字符本身，结尾不追加换行。
func Format(raw []byte) ([]byte, error) {
	if !utf8.Valid(raw) {
		return nil, ErrInvalidEncoding
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", indent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	return unescapeStrings(out.Bytes()), nil
}

// Save 校验请求体并覆盖写入文档，返回写入的字节数
//
// 校验失败时不会触碰磁盘上的文件。
func (s *DocumentStore) Save(raw []byte) (int, error) {
	formatted, err := Format(raw)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.path, formatted, 0644); err != nil {
		return 0, fmt.Errorf("写入文档失败: %w", err)
	}

	return len(formatted), nil
}
