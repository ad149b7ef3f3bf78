package data

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Dataset pairs an image container with its labels.
//
// A Dataset returned by Load owns its storage. Datasets returned by Split are
// views over the owner's arena: they are never released on their own, and
// they become invalid once the owner is released.
type Dataset struct {
	Info   Info
	Images *ImageSet
	Labels []uint8

	owner bool
}

// New assembles a Dataset from already loaded parts.
func New(info Info, images *ImageSet, labels []uint8) (*Dataset, error) {
	if images == nil {
		return nil, fmt.Errorf("new dataset: %w: nil images", ErrInvalidArgument)
	}
	if images.Len() != int(info.Items) || len(labels) != int(info.Items) {
		return nil, fmt.Errorf("new dataset: %w: info=%d images=%d labels=%d",
			ErrSizeMismatch, info.Items, images.Len(), len(labels))
	}
	return &Dataset{Info: info, Images: images, Labels: labels, owner: true}, nil
}

// Load reads an image container and its label container. Paths ending in
// ".gz" are decompressed on the fly.
func Load(imagesPath, labelsPath string) (*Dataset, error) {
	imageFile, err := openIDX(imagesPath)
	if err != nil {
		return nil, err
	}
	defer imageFile.Close()

	labelFile, err := openIDX(labelsPath)
	if err != nil {
		return nil, err
	}
	defer labelFile.Close()

	info, err := ReadInfo(imageFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", imagesPath, err)
	}
	if err := imageFile.checkPayload(info); err != nil {
		return nil, fmt.Errorf("%s: %w", imagesPath, err)
	}
	images, err := LoadImages(imageFile, info)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", imagesPath, err)
	}
	labels, err := LoadLabels(labelFile, info)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", labelsPath, err)
	}
	return New(info, images, labels)
}

// Len returns the number of items.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Labels)
}

// Row returns the normalized pixels of item i.
func (d *Dataset) Row(i int) []float64 {
	return d.Images.Row(i)
}

// Label returns the class of item i.
func (d *Dataset) Label(i int) int {
	return int(d.Labels[i])
}

// Split carves the trailing Len()/ratio items off as a validation set. Both
// results alias d's storage.
func (d *Dataset) Split(ratio int) (rest, validation *Dataset, err error) {
	if d == nil || d.Images == nil {
		return nil, nil, fmt.Errorf("split: %w: nil dataset", ErrInvalidArgument)
	}
	if ratio <= 0 {
		return nil, nil, fmt.Errorf("split: %w: ratio %d", ErrInvalidArgument, ratio)
	}

	n := d.Len()
	validationSize := n / ratio
	cut := n - validationSize

	rest = d.view(0, cut)
	validation = d.view(cut, n)
	if validationSize == 0 {
		log.Printf("warning: split ratio %d leaves an empty validation set (%d items)", ratio, n)
	}
	return rest, validation, nil
}

func (d *Dataset) view(from, to int) *Dataset {
	info := d.Info
	info.Items = uint32(to - from)
	return &Dataset{
		Info:   info,
		Images: d.Images.view(from, to),
		Labels: d.Labels[from:to:to],
	}
}

// Release drops the storage of an owning Dataset. It is a no-op on views.
func (d *Dataset) Release() {
	if d == nil || !d.owner {
		return
	}
	d.Images = nil
	d.Labels = nil
	d.Info.Items = 0
	d.owner = false
}

type idxFile struct {
	io.Reader
	closers []io.Closer
	size    int64 // on-disk size, -1 when compressed
}

// checkPayload compares the declared image payload with the bytes on disk
// before anything is allocated for it.
func (f *idxFile) checkPayload(info Info) error {
	payload, err := info.PayloadSize()
	if err != nil {
		return err
	}
	if f.size < 0 {
		return nil
	}
	if have := uint64(max(f.size-ImageHeaderSize, 0)); have < payload {
		return fmt.Errorf("%w: header declares %d pixel bytes, file holds %d", ErrTruncated, payload, have)
	}
	return nil
}

func (f *idxFile) Close() error {
	var first error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openIDX(path string) (*idxFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	f := &idxFile{Reader: bufio.NewReader(file), closers: []io.Closer{file}, size: -1}
	if !strings.HasSuffix(path, ".gz") {
		if st, err := file.Stat(); err == nil && st.Mode().IsRegular() {
			f.size = st.Size()
		}
		return f, nil
	}

	zr, err := gzip.NewReader(f.Reader)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open dataset %s: gzip: %w", path, err)
	}
	f.Reader = zr
	f.closers = append(f.closers, zr)
	return f, nil
}
