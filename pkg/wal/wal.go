// Package wal 是 append-only 的 JSON lines Write-Ahead Log
package wal

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// FileModePrivate rw------- (只有擁有者可讀寫)，帳本內容不應給其他使用者讀取
const FileModePrivate fs.FileMode = 0600

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrClosed WAL 已關閉
var ErrClosed = errors.New("wal: closed")

type WAL struct {
	file   *os.File
	mu     sync.Mutex
	fsync  bool
	closed bool
}

// Option WAL 設定
type Option func(*WAL)

// WithoutSync 每筆寫入後不呼叫 fsync (測試或可以接受遺失最後幾筆的情境)
func WithoutSync() Option {
	return func(w *WAL) { w.fsync = false }
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_RDWR讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func NewWAL(path string, opts ...Option) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		return nil, err
	}
	w := &WAL{file: file, fsync: true}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Write 寫入一筆資料，回傳前已經刷入硬碟
func (w *WAL) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, err := w.file.Write(line); err != nil {
		return err
	}
	if !w.fsync {
		return nil
	}
	return w.file.Sync()
}

// Sync 強制刷入硬碟
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.file.Sync()
}

// Close 關閉檔案，可重複呼叫
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// ReadAll 依寫入順序逐筆讀取
// callback 收到單筆 JSON，這樣可以避免一次將所有資料載入記憶體
// 最後一行若因當機而不完整會被忽略
func (w *WAL) ReadAll(callback func(raw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	// 確保從頭讀取
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(w.file)
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// 沒有換行結尾的殘缺紀錄
			return nil
		}
		if err != nil {
			return err
		}
		line = line[:len(line)-1]
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return errors.New("wal: corrupted record")
		}
		if err := callback(line); err != nil {
			return err
		}
	}
}
