// Package extract turns uploaded files into plain text.
//
// The supported formats form a closed set: every upload is classified once,
// at the upload boundary, by ParseFileType; downstream code dispatches on
// the resulting FileType and never re-validates content types.
package extract

import (
	"context"
	"fmt"

	"knowhub/internal/apperr"
)

// FileType identifies a supported upload format.
type FileType int

const (
	PDF FileType = iota
	DOCX
	PlainText
)

// MIME types accepted at upload.
const (
	MimePDF       = "application/pdf"
	MimeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePlainText = "text/plain"
)

func (t FileType) String() string {
	switch t {
	case PDF:
		return "pdf"
	case DOCX:
		return "docx"
	case PlainText:
		return "text"
	}
	return "unknown"
}

// ParseFileType is the single validation point for upload content types.
func ParseFileType(contentType string) (FileType, error) {
	switch contentType {
	case MimePDF:
		return PDF, nil
	case MimeDOCX:
		return DOCX, nil
	case MimePlainText:
		return PlainText, nil
	default:
		return 0, fmt.Errorf("%w: unsupported file type %q, only PDF, DOCX and TXT are allowed", apperr.ErrValidation, contentType)
	}
}

// Converter extracts text from binary document formats. The HTTP sidecar
// client in this package implements it; tests substitute fakes.
type Converter interface {
	Convert(ctx context.Context, filename string, content []byte) (string, error)
}

// Service extracts text from an upload, one handler per file type.
type Service struct {
	converter Converter
}

func NewService(converter Converter) *Service {
	return &Service{converter: converter}
}

// Text returns the extracted plain text for the given upload.
func (s *Service) Text(ctx context.Context, ft FileType, filename string, content []byte) (string, error) {
	switch ft {
	case PlainText:
		return extractPlainText(content), nil
	case PDF:
		return s.extractPDF(ctx, filename, content)
	case DOCX:
		return s.extractDOCX(ctx, filename, content)
	}
	// Unreachable for values produced by ParseFileType.
	return "", fmt.Errorf("%w: unhandled file type %d", apperr.ErrValidation, ft)
}

func extractPlainText(content []byte) string {
	return string(content)
}

func (s *Service) extractPDF(ctx context.Context, filename string, content []byte) (string, error) {
	return s.converter.Convert(ctx, filename, content)
}

func (s *Service) extractDOCX(ctx context.Context, filename string, content []byte) (string, error) {
	return s.converter.Convert(ctx, filename, content)
}
