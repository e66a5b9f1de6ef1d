package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mycourse/catalog-backend/internal/logger"
)

// ImagePersister stores a course's cover image and returns the public path
// the catalog should reference. I/O failures propagate unchanged; the
// service does not translate them into domain errors.
type ImagePersister interface {
	SaveCourseImage(ctx context.Context, courseID uuid.UUID, content io.Reader, originalName string) (string, error)
}

type localImagePersister struct {
	baseDir string
	log     *logger.Logger
}

// NewLocalImagePersister writes images under baseDir, one file per course,
// keyed by course id so a re-upload overwrites the previous image.
func NewLocalImagePersister(baseDir string, baseLog *logger.Logger) ImagePersister {
	return &localImagePersister{
		baseDir: baseDir,
		log:     baseLog.With("service", "LocalImagePersister"),
	}
}

func (p *localImagePersister) SaveCourseImage(ctx context.Context, courseID uuid.UUID, content io.Reader, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".jpg"
	}
	fileName := courseID.String() + ext

	if err := os.MkdirAll(p.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	fullPath := filepath.Join(p.baseDir, fileName)
	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, content); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}

	p.log.Debug("Saved course image", "course_id", courseID, "path", fullPath)
	return "/courses/" + fileName, nil
}
