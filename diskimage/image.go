// Package diskimage builds a FAT32 virtual disk image out of a demux
// run's recovered track files, so a completed recovery can be burned
// to an SD card or mounted directly instead of handled as loose files.
package diskimage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/diskfs/go-diskfs/partition/mbr"
)

const sectorSize = 512

// Track is one recovered track's output, as known once its Emitter
// has closed it.
type Track struct {
	Name         string // base filename without extension
	WAVPath      string // source path of the finalized .wav on the host filesystem
	DetailsPath  string // source path of the finalized .details on the host filesystem
}

// Image wraps a FAT32 filesystem image containing a demux run's
// recovered files, backed by a temporary file on the host.
type Image struct {
	fs      filesystem.FileSystem
	Path    string
	closefn func() error
}

// sanitizeName converts name to an 8.3 DOS-compatible filename
// component: uppercase ASCII letters and digits only, truncated to 8
// characters.
func sanitizeName(name string) string {
	out := make([]rune, 0, 8)
	for _, r := range strings.ToUpper(name) {
		if len(out) == 8 {
			break
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "TRACK"
	}
	return string(out)
}

// Create allocates a new sizeBytes FAT32 disk image backed by a
// temporary file, labeled volLabel. Callers must Close the Image when
// finished with it.
func Create(sizeBytes int64, volLabel string) (*Image, error) {
	tmpdir, err := os.MkdirTemp("", "dat-recover")
	if err != nil {
		return nil, fmt.Errorf("diskimage: create temp dir: %w", err)
	}
	imgPath := tmpdir + "/disk.img"

	dsk, err := diskfs.Create(imgPath, sizeBytes, diskfs.SectorSizeDefault)
	if err != nil {
		return nil, fmt.Errorf("diskimage: create %s: %w", imgPath, err)
	}

	table := &mbr.Table{
		LogicalSectorSize:  sectorSize,
		PhysicalSectorSize: sectorSize,
		Partitions: []*mbr.Partition{
			{
				Bootable: false,
				Type:     mbr.Linux,
				Start:    0,
				Size:     uint32(sizeBytes) / sectorSize,
			},
		},
	}
	if err := dsk.Partition(table); err != nil {
		os.RemoveAll(tmpdir)
		return nil, fmt.Errorf("diskimage: partition: %w", err)
	}

	fatfs, err := dsk.CreateFilesystem(disk.FilesystemSpec{
		Partition:   1,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: sanitizeName(volLabel),
	})
	if err != nil {
		os.RemoveAll(tmpdir)
		return nil, fmt.Errorf("diskimage: create filesystem: %w", err)
	}

	return &Image{
		fs:   fatfs,
		Path: imgPath,
		closefn: func() error {
			return os.RemoveAll(tmpdir)
		},
	}, nil
}

// AddTrack copies one recovered track's .wav (and, if present,
// .details) file from the host filesystem into the image under an
// 8.3-safe name.
func (img *Image) AddTrack(number int, t Track) error {
	idx := fmt.Sprintf("%02d", number)
	base := sanitizeName(t.Name)
	if len(base)+len(idx) > 8 {
		base = base[:8-len(idx)]
	}
	name := base + idx

	if err := img.copyIn(t.WAVPath, name+".WAV"); err != nil {
		return err
	}
	if t.DetailsPath != "" {
		if err := img.copyIn(t.DetailsPath, name+".TXT"); err != nil {
			return err
		}
	}
	return nil
}

func (img *Image) copyIn(srcPath, imagePath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("diskimage: open %s: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := img.fs.OpenFile(imagePath, os.O_CREATE|os.O_RDWR)
	if err != nil {
		return fmt.Errorf("diskimage: create %s in image: %w", imagePath, err)
	}
	if _, err := copyAll(dst, src); err != nil {
		return fmt.Errorf("diskimage: copy %s into image: %w", srcPath, err)
	}
	return nil
}

func copyAll(dst filesystem.File, src *os.File) (int64, error) {
	buf := make([]byte, 64*1024)
	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return total, nil
			}
			return total, rerr
		}
	}
}

// Close flushes the FAT32 filesystem to the backing temporary file at
// Path. Callers that want the finished image must read Path before
// calling Remove.
func (img *Image) Close() error {
	if err := img.fs.Close(); err != nil {
		return fmt.Errorf("diskimage: close filesystem: %w", err)
	}
	return nil
}

// Remove deletes the temporary directory backing the image. Call it
// once Path's contents have been copied wherever they need to go.
func (img *Image) Remove() error {
	return img.closefn()
}
