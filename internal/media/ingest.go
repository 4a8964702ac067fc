package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sync"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/sirupsen/logrus"
)

// ObjectUploader is the slice of the S3 uploader the ingestor needs.
type ObjectUploader interface {
	UploadFile(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error)
}

// Ingestor uploads submitted evidence files to object storage. Files are
// partitioned into images and videos by their magic bytes, not by the
// declared filename or Content-Type header.
type Ingestor struct {
	Uploader  ObjectUploader
	MaxImages int
	MaxVideos int
}

func NewIngestor(uploader ObjectUploader, maxImages, maxVideos int) *Ingestor {
	return &Ingestor{Uploader: uploader, MaxImages: maxImages, MaxVideos: maxVideos}
}

const (
	groupImage = iota
	groupVideo
)

type evidenceFile struct {
	data        []byte
	contentType string
	ext         string
	group       int
	pos         int // position within its group, fixes result ordering
}

// ErrTooManyFiles is returned before any upload starts when a submission
// exceeds the configured image or video count.
type ErrTooManyFiles struct {
	Kind  string
	Limit int
}

func (e *ErrTooManyFiles) Error() string {
	return fmt.Sprintf("too many %s files, at most %d allowed", e.Kind, e.Limit)
}

// Ingest reads, classifies and uploads the submitted files. Uploads run
// concurrently; a single failed upload is logged and dropped from the result,
// never failing the submission. The returned slices contain only URLs of
// successful uploads, in submission order.
func (ing *Ingestor) Ingest(ctx context.Context, files []*multipart.FileHeader) (images, videos []string, err error) {
	var items []evidenceFile
	counts := [2]int{}

	for _, fh := range files {
		data, readErr := readFile(fh)
		if readErr != nil {
			logrus.WithError(readErr).WithField("filename", fh.Filename).Warn("skipping unreadable evidence file")
			continue
		}

		kind, matchErr := filetype.Match(data)
		if matchErr != nil || kind == filetype.Unknown {
			logrus.WithField("filename", fh.Filename).Warn("skipping evidence file of unknown type")
			continue
		}

		var group int
		switch kind.MIME.Type {
		case "image":
			group = groupImage
		case "video":
			group = groupVideo
		default:
			logrus.WithFields(logrus.Fields{
				"filename": fh.Filename,
				"type":     kind.MIME.Value,
			}).Warn("skipping evidence file that is neither image nor video")
			continue
		}

		items = append(items, evidenceFile{
			data:        data,
			contentType: kind.MIME.Value,
			ext:         kind.Extension,
			group:       group,
			pos:         counts[group],
		})
		counts[group]++
	}

	if counts[groupImage] > ing.MaxImages {
		return nil, nil, &ErrTooManyFiles{Kind: "image", Limit: ing.MaxImages}
	}
	if counts[groupVideo] > ing.MaxVideos {
		return nil, nil, &ErrTooManyFiles{Kind: "video", Limit: ing.MaxVideos}
	}

	// Fan out the uploads and join before returning. Each item writes its
	// URL into a fixed slot so submission order survives the concurrency.
	slots := [2][]string{
		make([]string, counts[groupImage]),
		make([]string, counts[groupVideo]),
	}

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(item evidenceFile) {
			defer wg.Done()

			objectKey := fmt.Sprintf("evidence/%s.%s", uuid.New().String(), item.ext)
			url, upErr := ing.Uploader.UploadFile(ctx, bytes.NewReader(item.data), objectKey, item.contentType)
			if upErr != nil {
				logrus.WithError(upErr).WithField("objectKey", objectKey).Error("evidence upload failed")
				return
			}
			slots[item.group][item.pos] = url
		}(item)
	}
	wg.Wait()

	return compact(slots[groupImage]), compact(slots[groupVideo]), nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

// compact drops the empty slots left by failed uploads.
func compact(urls []string) []string {
	out := []string{}
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
