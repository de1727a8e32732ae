package storage

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const dirPerm = 0o755

// LocalProvider implements Provider on top of an afero filesystem
type LocalProvider struct {
	fs   afero.Fs
	kind ProviderType
}

// NewLocalProvider creates a provider backed by the operating system filesystem.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{fs: afero.NewOsFs(), kind: ProviderLocal}
}

// NewProvider wraps an arbitrary afero filesystem, e.g. afero.NewMemMapFs in tests.
func NewProvider(fs afero.Fs) *LocalProvider {
	kind := ProviderLocal
	if _, ok := fs.(*afero.MemMapFs); ok {
		kind = ProviderMemory
	}
	return &LocalProvider{fs: fs, kind: kind}
}

// Walk visits every entry under root. afero.Walk sorts directory entries
// and uses Lstat, so symlinked directories are reported but not entered.
func (p *LocalProvider) Walk(root string, fn filepath.WalkFunc) error {
	return afero.Walk(p.fs, root, fn)
}

// Stat returns file information without following a final symlink when
// the filesystem supports it.
func (p *LocalProvider) Stat(path string) (FileInfo, error) {
	info, err := p.lstat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
		Regular: info.Mode().IsRegular(),
	}, nil
}

func (p *LocalProvider) lstat(path string) (os.FileInfo, error) {
	if l, ok := p.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return p.fs.Stat(path)
}

// OpenFile opens a file for reading
func (p *LocalProvider) OpenFile(path string) (Reader, error) {
	file, err := p.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Exists reports whether anything occupies path.
func (p *LocalProvider) Exists(path string) (bool, error) {
	_, err := p.lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// MkdirAll creates path and any missing parents.
func (p *LocalProvider) MkdirAll(path string) error {
	if err := p.fs.MkdirAll(path, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// MoveFile moves src to dst. A rename is attempted first; when it fails
// because src and dst live on different filesystems the file is copied,
// verified and only then removed from src.
func (p *LocalProvider) MoveFile(src, dst string) error {
	if err := p.MkdirAll(filepath.Dir(dst)); err != nil {
		return err
	}

	exists, err := p.Exists(dst)
	if err != nil {
		return fmt.Errorf("failed to check destination: %w", err)
	}
	if exists {
		return fmt.Errorf("%s: %w", dst, ErrDestinationExists)
	}

	err = p.fs.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return fmt.Errorf("failed to move file: %w", err)
	}

	if err := p.copyVerified(src, dst); err != nil {
		return &CrossDeviceError{Src: src, Dst: dst, Err: err}
	}
	if err := p.fs.Remove(src); err != nil {
		// The copy is complete and verified; keep a single copy of the data.
		_ = p.fs.Remove(dst)
		return &CrossDeviceError{Src: src, Dst: dst, Err: fmt.Errorf("remove source: %w", err)}
	}
	return nil
}

// Name returns the provider name
func (p *LocalProvider) Name() string {
	return string(p.kind)
}

// copyVerified copies src to dst, then reads dst back and compares its
// size and SHA-256 with the source. dst is created exclusively and
// removed again on any failure.
func (p *LocalProvider) copyVerified(src, dst string) (err error) {
	in, err := p.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := p.fs.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s: %w", dst, ErrDestinationExists)
		}
		return err
	}
	closed := false
	defer func() {
		if err != nil {
			if !closed {
				_ = out.Close()
			}
			_ = p.fs.Remove(dst)
		}
	}()

	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHasher))
	if err != nil {
		return err
	}
	closed = true
	if err = out.Close(); err != nil {
		return err
	}
	if written != srcInfo.Size() {
		err = fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
		return err
	}

	dstSize, dstSum, err := p.hashFile(dst)
	if err != nil {
		return fmt.Errorf("verify copy: %w", err)
	}
	if dstSize != srcInfo.Size() {
		err = fmt.Errorf("copy size mismatch: source %d bytes, destination %d bytes", srcInfo.Size(), dstSize)
		return err
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstSum) {
		err = errors.New("copy hash mismatch: file corrupted during copy")
		return err
	}
	_ = p.fs.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
	return nil
}

func (p *LocalProvider) hashFile(path string) (int64, []byte, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, nil, err
	}
	return n, h.Sum(nil), nil
}

// WriteFileAtomic writes path through a temporary file in the same
// directory that is renamed over path once write succeeds. An existing
// file at path is replaced.
func (p *LocalProvider) WriteFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := p.MkdirAll(dir); err != nil {
		return err
	}

	tmp, err := afero.TempFile(p.fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = p.fs.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := p.fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Ensure LocalProvider implements Provider interface
var _ Provider = (*LocalProvider)(nil)
