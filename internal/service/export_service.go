package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/salesledger/internal/analytics"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/export"
	"github.com/andresuchdata/salesledger/internal/reconciliation"
	"github.com/andresuchdata/salesledger/internal/storage"
)

// ErrStorageDisabled is returned when an upload is requested without object
// storage configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

// Artifact is a rendered workbook ready to stream or upload.
type Artifact struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Upload is where an artifact landed in object storage.
type Upload struct {
	Key  string `json:"key"`
	URL  string `json:"url,omitempty"`
	Size int    `json:"size"`
}

type ExportService struct {
	sales   *SalesService
	reports *ReportService
	recon   *ReconciliationService
	objects storage.ObjectStorage
	prefix  string
}

// NewExportService wires the workbook builders. objects may be nil.
func NewExportService(sales *SalesService, reports *ReportService, recon *ReconciliationService, objects storage.ObjectStorage, prefix string) *ExportService {
	return &ExportService{sales: sales, reports: reports, recon: recon, objects: objects, prefix: prefix}
}

func render(name string, build func(*bytes.Buffer) error) (*Artifact, error) {
	var buf bytes.Buffer
	if err := build(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return &Artifact{FileName: name, ContentType: export.ContentTypeXLSX, Data: buf.Bytes()}, nil
}

func (s *ExportService) Sales(ctx context.Context, f domain.SalesFilter) (*Artifact, error) {
	sales, err := s.sales.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return render(export.FileName("sales", f.From, f.To, f.Branch), func(b *bytes.Buffer) error {
		return export.Sales(b, sales)
	})
}

func (s *ExportService) Matrix(ctx context.Context, scope Scope, q analytics.MatrixQuery) (*Artifact, error) {
	report, err := s.reports.Matrix(ctx, scope, q)
	if err != nil {
		return nil, err
	}
	name := export.FileName("matrix", report.Query.FromMonth, report.Query.ToMonth,
		strconv.Itoa(report.Query.FromDay)+"-"+strconv.Itoa(report.Query.ToDay))
	return render(name, func(b *bytes.Buffer) error {
		return export.Matrix(b, *report)
	})
}

func (s *ExportService) Treasury(ctx context.Context, q reconciliation.TreasuryReportQuery) (*Artifact, error) {
	report, err := s.recon.TreasuryReport(ctx, q)
	if err != nil {
		return nil, err
	}
	return render(export.FileName("treasury", q.From, q.To, string(q.Type)), func(b *bytes.Buffer) error {
		return export.Treasury(b, report)
	})
}

func (s *ExportService) POS(ctx context.Context, f POSFilter) (*Artifact, error) {
	recs, err := s.recon.ListPOS(ctx, f)
	if err != nil {
		return nil, err
	}
	return render(export.FileName("pos", f.From, f.To, f.POSID), func(b *bytes.Buffer) error {
		return export.POSReconciliations(b, recs)
	})
}

// Upload stores a under the configured prefix and returns a presigned link
// when the backend can sign one.
func (s *ExportService) Upload(ctx context.Context, a *Artifact) (*Upload, error) {
	if s.objects == nil {
		return nil, ErrStorageDisabled
	}
	key := path.Join(s.prefix, a.FileName)
	if err := s.objects.UploadObject(ctx, key, a.Data, a.ContentType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	up := &Upload{Key: key, Size: len(a.Data)}
	url, err := s.objects.PresignedURL(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("presign export failed")
	} else {
		up.URL = url
	}
	log.Info().Str("key", key).Int("bytes", up.Size).Msg("export uploaded")
	return up, nil
}

// Uploaded lists exports previously stored under the prefix.
func (s *ExportService) Uploaded(ctx context.Context) ([]storage.ObjectInfo, error) {
	if s.objects == nil {
		return nil, ErrStorageDisabled
	}
	return s.objects.ListObjects(ctx, s.prefix)
}
