package media

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
)

type Kind string

// Upload kinds
const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// sniffLen is the number of leading bytes used to detect the content type.
const sniffLen = 3072

type rule struct {
	exts  []string
	mimes []string
}

var rules = map[Kind]rule{
	KindImage: {
		exts:  []string{".jpg", ".jpeg", ".png", ".webp"},
		mimes: []string{"image/jpeg", "image/png", "image/webp"},
	},
	KindVideo: {
		exts:  []string{".mp4", ".mov", ".avi", ".mkv"},
		mimes: []string{"video/mp4", "video/quicktime", "video/x-msvideo", "video/x-matroska"},
	},
}

type UploaderInterface interface {
	Upload(ctx context.Context, kind Kind, filename string, r io.Reader, size int64) (string, error)
}

// Uploader checks uploaded files and hands them over to the file storage.
type Uploader struct {
	store core.FileStorage
	conf  *core.Config
}

var _ UploaderInterface = (*Uploader)(nil)

func NewUploader(store core.FileStorage, conf *core.Config) *Uploader {
	return &Uploader{store: store, conf: conf}
}

func (u *Uploader) maxSize(kind Kind) int64 {
	if kind == KindVideo {
		return u.conf.Storage.MaxVideoSize
	}
	return u.conf.Storage.MaxImageSize
}

// Upload validates the extension, size and sniffed content type of the file, stores it and returns its URL.
func (u *Uploader) Upload(ctx context.Context, kind Kind, filename string, r io.Reader, size int64) (string, error) {
	rl, ok := rules[kind]
	if !ok {
		return "", errors.Errorf("unknown upload kind %q", kind)
	}
	if size <= 0 {
		return "", core.NewFieldError("file", "no "+string(kind)+" uploaded")
	}
	if max := u.maxSize(kind); max > 0 && size > max {
		return "", core.NewFieldError("file", "file too large")
	}
	ext := strings.ToLower(path.Ext(filename))
	if !contains(rl.exts, ext) {
		return "", core.NewFieldError("file", "only "+strings.Join(rl.exts, ", ")+" files are allowed")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errors.Wrap(err, "reading upload")
	}
	head = head[:n]
	mtype := mimetype.Detect(head)
	if !matches(mtype, rl.mimes) {
		return "", core.NewFieldError("file", "file content does not match an allowed "+string(kind)+" type")
	}

	key := string(kind) + "s/" + uuid.New().String() + ext
	url, err := u.store.Save(ctx, key, mtype.String(), io.MultiReader(bytes.NewReader(head), r), size)
	if err != nil {
		return "", errors.Wrap(err, "storing upload")
	}
	return url, nil
}

func matches(mtype *mimetype.MIME, allowed []string) bool {
	for m := mtype; m != nil; m = m.Parent() {
		for _, a := range allowed {
			if m.Is(a) {
				return true
			}
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
