package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/rollcall-dev/rollcall-api/internal/models"
	appErrors "github.com/rollcall-dev/rollcall-api/pkg/errors"
)

const (
	qrMinSize     = 64
	qrMaxSize     = 1024
	qrDefaultSize = 256

	barcodeWidth  = 400
	barcodeHeight = 120
)

type badgeStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// BadgeService renders scannable badge images carrying a student's id
// number.
type BadgeService struct {
	students badgeStudentReader
	logger   *zap.Logger
}

// NewBadgeService constructs BadgeService.
func NewBadgeService(students badgeStudentReader, logger *zap.Logger) *BadgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeService{students: students, logger: logger}
}

// QRCode renders the student's id number as a QR code PNG. Size is in
// pixels and clamped to a sane range; zero selects the default.
func (s *BadgeService) QRCode(ctx context.Context, studentID string, size int) ([]byte, error) {
	student, err := s.find(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		size = qrDefaultSize
	}
	if size < qrMinSize {
		size = qrMinSize
	}
	if size > qrMaxSize {
		size = qrMaxSize
	}
	body, err := qrcode.Encode(student.StudentIDNum, qrcode.Medium, size)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render QR code")
	}
	return body, nil
}

// Barcode renders the student's id number as a Code 128 barcode PNG.
func (s *BadgeService) Barcode(ctx context.Context, studentID string) ([]byte, error) {
	student, err := s.find(ctx, studentID)
	if err != nil {
		return nil, err
	}
	code, err := code128.Encode(student.StudentIDNum)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode barcode")
	}
	scaled, err := barcode.Scale(code, barcodeWidth, barcodeHeight)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scale barcode")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render barcode")
	}
	return buf.Bytes(), nil
}

func (s *BadgeService) find(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
