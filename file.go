package catreader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// File is a source backed by a file path. The file is opened on the first Read,
// so a sequence of Files never holds more than the current one open.
type File struct {
	path   string
	option Options

	fd     *os.File
	rd     io.Reader // fd，或者解压后的 reader
	decomp io.Closer
	lock   *flock.Flock
}

func NewFile(path string, option Options) *File {
	return &File{path: path, option: option}
}

// Read opens the file if needed. An open error is returned as is and the open is
// retried by the next Read.
func (f *File) Read(p []byte) (int, error) {
	if f.rd == nil {
		if err := f.open(); err != nil {
			return 0, err
		}
	}
	return f.rd.Read(p)
}

func (f *File) open() (err error) {
	fd, err := os.Open(f.path)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.unlock()
			_ = fd.Close()
		}
	}()

	if f.option.SharedLock {
		lock := flock.New(f.path)
		locked, err := lock.TryRLock()
		if err != nil {
			return err
		}
		if !locked {
			return ErrFileLocked
		}
		f.lock = lock
	}

	var rd io.Reader = fd
	if f.option.Decompress {
		switch strings.ToLower(filepath.Ext(f.path)) {
		case ".gz":
			zr, err := gzip.NewReader(fd)
			if err != nil {
				return err
			}
			rd, f.decomp = zr, zr
		case ".zst":
			zr, err := zstd.NewReader(fd)
			if err != nil {
				return err
			}
			rd, f.decomp = zr, zstdCloser{zr}
		}
	}

	f.fd = fd
	f.rd = rd
	return nil
}

func (f *File) unlock() {
	if f.lock != nil {
		_ = f.lock.Unlock()
		f.lock = nil
	}
}

// Identity returns the path the file was created with.
func (f *File) Identity() string {
	return f.path
}

func (f *File) Close() error {
	if f.fd == nil {
		return nil
	}
	var err error
	if f.decomp != nil {
		err = f.decomp.Close()
		f.decomp = nil
	}
	f.unlock()
	if cerr := f.fd.Close(); err == nil {
		err = cerr
	}
	f.fd = nil
	f.rd = nil
	return err
}

func (f *File) String() string {
	if f.fd == nil {
		return fmt.Sprintf("File(%q, closed)", f.path)
	}
	return fmt.Sprintf("File(%q, open)", f.path)
}

type zstdCloser struct {
	d *zstd.Decoder
}

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}

// FileSequence yields a File per path. Next never touches the filesystem.
type FileSequence struct {
	paths    []string
	option   Options
	progress int
}

func NewFileSequence(option Options, paths ...string) *FileSequence {
	return &FileSequence{paths: paths, option: option}
}

func (s *FileSequence) Next() (io.Reader, error) {
	if s.progress >= len(s.paths) {
		return nil, io.EOF
	}
	f := NewFile(s.paths[s.progress], s.option)
	s.progress++
	return f, nil
}

// Remaining returns the paths not pulled yet.
func (s *FileSequence) Remaining() []string {
	return s.paths[s.progress:]
}

// NewFileReader concatenates the files at paths.
func NewFileReader(paths ...string) *Reader {
	return New(NewFileSequence(DefaultOptions, paths...))
}

// FileNumber 解析 "<编号><ext>" 形式的文件名，编号只能是十进制数字（不带符号）
func FileNumber(name, ext string) (uint64, bool) {
	if !strings.HasSuffix(name, ext) {
		return 0, false
	}
	digits := strings.TrimSuffix(name, ext)
	if digits == "" || digits[0] < '0' || digits[0] > '9' {
		return 0, false
	}
	id, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// DirSequence 按文件编号从小到大返回 dir 下所有 "<编号><ext>" 文件，例如 0000000001.log
func DirSequence(dir, ext string, option Options) (*FileSequence, error) {
	if !strings.HasPrefix(ext, ".") {
		return nil, fmt.Errorf("catreader: extension %q must start with '.'", ext)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type numbered struct {
		id   uint64
		name string
	}
	var files []numbered
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		id, ok := FileNumber(entry.Name(), ext)
		if !ok {
			continue
		}
		files = append(files, numbered{id: id, name: entry.Name()})
	}

	// 1.log 和 01.log 编号相同，按文件名排
	sort.Slice(files, func(i, j int) bool {
		if files[i].id != files[j].id {
			return files[i].id < files[j].id
		}
		return files[i].name < files[j].name
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = filepath.Join(dir, f.name)
	}
	return NewFileSequence(option, paths...), nil
}
