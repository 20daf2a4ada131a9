package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/service"
	"github.com/andresuchdata/salesledger/internal/store"
)

// downloadWorkers bounds concurrent Drive downloads of a folder import.
const downloadWorkers = 4

// Source is the subset of Drive the importer needs.
type Source interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	GetFile(ctx context.Context, fileID string) (*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

// Importer stores parsed sales.
type Importer interface {
	Import(ctx context.Context, records []domain.SaleRecord, opts service.ImportOptions) (*service.ImportResult, error)
}

// FileReport summarises the import of one sheet.
type FileReport struct {
	FileID   string     `json:"fileId"`
	Name     string     `json:"name"`
	Imported int        `json:"imported"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
	Failed   string     `json:"failed,omitempty"`

	Write *store.WriteResult `json:"write,omitempty"`
}

type IngestService struct {
	source   Source
	importer Importer
}

func NewIngestService(source Source, importer Importer) *IngestService {
	return &IngestService{source: source, importer: importer}
}

// IngestFile downloads one sheet and imports its rows.
func (s *IngestService) IngestFile(ctx context.Context, fileID string, opts service.ImportOptions) (*FileReport, error) {
	f, err := s.source.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	sheet, err := s.download(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.importSheet(ctx, f, sheet, opts)
}

// IngestFolder imports every CSV and XLSX file in the Drive folder at path.
// Downloads run in parallel; imports run one file at a time in name order so
// duplicate handling is deterministic. A failing file is reported and does
// not stop the others.
func (s *IngestService) IngestFolder(ctx context.Context, path string, opts service.ImportOptions) ([]FileReport, error) {
	folderID, err := s.source.FindFolderByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	files, err := s.source.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var sheetFiles []*File
	for _, f := range files {
		if IsSheet(f.Name) {
			sheetFiles = append(sheetFiles, f)
		}
	}
	sort.Slice(sheetFiles, func(i, j int) bool { return sheetFiles[i].Name < sheetFiles[j].Name })

	sheets := make([]*Sheet, len(sheetFiles))
	failures := make([]error, len(sheetFiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadWorkers)
	for i, f := range sheetFiles {
		g.Go(func() error {
			sheets[i], failures[i] = s.download(gctx, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reports := make([]FileReport, 0, len(sheetFiles))
	for i, f := range sheetFiles {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		if failures[i] != nil {
			log.Warn().Err(failures[i]).Str("file", f.Name).Msg("skipping drive file")
			reports = append(reports, FileReport{FileID: f.ID, Name: f.Name, Errors: []RowError{}, Failed: failures[i].Error()})
			continue
		}
		rep, err := s.importSheet(ctx, f, sheets[i], opts)
		if err != nil {
			return reports, err
		}
		reports = append(reports, *rep)
	}
	return reports, nil
}

func (s *IngestService) download(ctx context.Context, f *File) (*Sheet, error) {
	if !IsSheet(f.Name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Name)
	}
	var buf bytes.Buffer
	if err := s.source.DownloadFile(ctx, f.ID, &buf); err != nil {
		return nil, err
	}
	sheet, err := ParseSales(&buf, f.Name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return sheet, nil
}

func (s *IngestService) importSheet(ctx context.Context, f *File, sheet *Sheet, opts service.ImportOptions) (*FileReport, error) {
	rep, err := ImportSheet(ctx, s.importer, f.Name, sheet, opts)
	if err != nil {
		return nil, err
	}
	rep.FileID = f.ID
	return rep, nil
}

// ImportSheet stores the records of a parsed sheet and reports every problem
// against its sheet row.
func ImportSheet(ctx context.Context, importer Importer, name string, sheet *Sheet, opts service.ImportOptions) (*FileReport, error) {
	rep := &FileReport{Name: name, Errors: append([]RowError{}, sheet.Errors...)}
	rep.Skipped = len(sheet.Errors)

	if len(sheet.Records) > 0 {
		res, err := importer.Import(ctx, sheet.Records, opts)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", name, err)
		}
		rep.Imported = res.Imported
		rep.Updated = res.Updated
		rep.Skipped += res.Skipped
		rep.Write = &res.Write
		for _, e := range res.Errors {
			row := e.Row
			if row >= 1 && row <= len(sheet.Rows) {
				row = sheet.Rows[row-1]
			}
			rep.Errors = append(rep.Errors, RowError{Row: row, Error: e.Error})
		}
	}
	sort.SliceStable(rep.Errors, func(i, j int) bool { return rep.Errors[i].Row < rep.Errors[j].Row })

	log.Info().
		Str("file", name).
		Int("imported", rep.Imported).
		Int("updated", rep.Updated).
		Int("skipped", rep.Skipped).
		Msg("sales sheet imported")
	return rep, nil
}

// Keep returns a copy of the sheet holding only the records keep accepts.
// Rejected records become row errors with reason.
func (s *Sheet) Keep(keep func(domain.SaleRecord) bool, reason string) *Sheet {
	out := &Sheet{Errors: append([]RowError{}, s.Errors...)}
	for i, r := range s.Records {
		if !keep(r) {
			out.Errors = append(out.Errors, RowError{Row: s.Rows[i], Error: reason})
			continue
		}
		out.Records = append(out.Records, r)
		out.Rows = append(out.Rows, s.Rows[i])
	}
	return out
}
