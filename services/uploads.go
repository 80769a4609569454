package services

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"civicsync-api/apperrors"
	"civicsync-api/metrics"
	"civicsync-api/models"
	"civicsync-api/storage"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxUploadFiles = 5
	MaxUploadSize  = 5 << 20

	uploadFolder = "civicsync/issues"
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Upload is an image received with a create request and not yet stored.
type Upload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

type sniffedUpload struct {
	name        string
	contentType string
	data        []byte
}

// CreateWithUploads stores the uploaded images and creates the issue that
// references them. Files already stored are removed again when any later
// step fails.
func (s *IssueService) CreateWithUploads(ctx context.Context, caller models.Caller, in CreateIssueInput, uploads []Upload) (*IssueView, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return nil, apperrors.Validation(errs...)
	}
	if len(uploads) == 0 {
		return s.Create(ctx, caller, in)
	}
	if s.files == nil {
		return nil, apperrors.Dependency("Image upload is not available", fmt.Errorf("no file storage configured"))
	}

	files, err := sniffUploads(uploads)
	if err != nil {
		return nil, err
	}

	images := make([]models.Image, 0, len(files))
	for _, f := range files {
		stored, err := s.files.Store(ctx, storage.File{
			Name:        f.name,
			ContentType: f.contentType,
			Size:        int64(len(f.data)),
			Data:        bytes.NewReader(f.data),
		}, uploadFolder)
		if err != nil {
			s.discardImages(ctx, images)
			return nil, apperrors.Dependency("Image upload failed", err)
		}
		images = append(images, models.Image{URL: stored.URL, PublicID: stored.PublicID, UploadedAt: s.now()})
	}

	in.Images = images
	view, err := s.Create(ctx, caller, in)
	if err != nil {
		s.discardImages(ctx, images)
		return nil, err
	}
	return view, nil
}

// sniffUploads reads every upload and checks count, size and content type
// before anything is stored.
func sniffUploads(uploads []Upload) ([]sniffedUpload, error) {
	if len(uploads) > MaxUploadFiles {
		return nil, apperrors.Invalid("images", fmt.Sprintf("You can upload at most %d images", MaxUploadFiles))
	}
	out := make([]sniffedUpload, 0, len(uploads))
	for _, u := range uploads {
		if u.Size > MaxUploadSize {
			return nil, apperrors.Invalid("images", fmt.Sprintf("%s is larger than 5MB", u.Filename))
		}
		rc, err := u.Open()
		if err != nil {
			return nil, apperrors.Dependency("Could not read uploaded file", err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, MaxUploadSize+1))
		rc.Close()
		if err != nil {
			return nil, apperrors.Dependency("Could not read uploaded file", err)
		}
		if len(data) > MaxUploadSize {
			return nil, apperrors.Invalid("images", fmt.Sprintf("%s is larger than 5MB", u.Filename))
		}
		mt := mimetype.Detect(data)
		if !mimetype.EqualsAny(mt.String(), allowedImageTypes...) {
			return nil, apperrors.Invalid("images", "Only image files are allowed (jpeg, jpg, png, gif, webp)")
		}
		out = append(out, sniffedUpload{name: u.Filename, contentType: mt.String(), data: data})
	}
	return out, nil
}

func (s *IssueService) discardImages(ctx context.Context, images []models.Image) {
	for _, img := range images {
		if _, err := s.files.Delete(context.WithoutCancel(ctx), img.PublicID); err != nil {
			metrics.SideEffectFailures.WithLabelValues("storage_delete").Inc()
			s.log.Warn().Err(err).Str("public_id", img.PublicID).Msg("rollback of stored image failed")
		}
	}
}
