package services

import (
	"context"
	"fmt"
	"path"
	"time"

	"tabletop/internal/access"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const archiveURLExpiry = 15 * time.Minute

// ReportArchive is a stored daily export offered for download.
type ReportArchive struct {
	Day         string    `json:"day"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	DownloadURL string    `json:"download_url"`
}

type ReportArchiveService interface {
	// ArchiveDay stores the tenant's paid orders of the given day as CSV.
	ArchiveDay(ctx context.Context, tenantID uuid.UUID, day time.Time) (int, error)
	ListArchives(ctx context.Context) ([]*ReportArchive, error)
}

type reportArchiveService struct {
	reports ReportService
	storage ObjectStorage
	logger  *zap.Logger
}

func NewReportArchiveService(reports ReportService, storage ObjectStorage, logger *zap.Logger) ReportArchiveService {
	return &reportArchiveService{reports: reports, storage: storage, logger: logger}
}

func archivePrefix(tenantID uuid.UUID) string {
	return path.Join("reports", tenantID.String()) + "/"
}

// ArchiveObjectName is the storage key of a tenant's export for day.
func ArchiveObjectName(tenantID uuid.UUID, day time.Time) string {
	return archivePrefix(tenantID) + day.Format("2006-01-02") + ".csv"
}

func (s *reportArchiveService) ArchiveDay(ctx context.Context, tenantID uuid.UUID, day time.Time) (int, error) {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	data, count, err := s.reports.ExportPaidOrdersCSV(ctx, tenantID, from, to)
	if err != nil {
		return 0, err
	}
	if err := s.storage.Upload(ctx, ArchiveObjectName(tenantID, from), "text/csv", data); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *reportArchiveService) ListArchives(ctx context.Context) ([]*ReportArchive, error) {
	p, err := access.Authorize(ctx, access.ViewReports)
	if err != nil {
		return nil, err
	}
	objects, err := s.storage.List(ctx, archivePrefix(p.TenantID))
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}

	out := make([]*ReportArchive, 0, len(objects))
	for _, obj := range objects {
		url, err := s.storage.PresignedURL(ctx, obj.Key, archiveURLExpiry)
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", obj.Key, err)
		}
		name := path.Base(obj.Key)
		out = append(out, &ReportArchive{
			Day:         name[:len(name)-len(path.Ext(name))],
			Size:        obj.Size,
			CreatedAt:   obj.LastModified,
			DownloadURL: url,
		})
	}
	return out, nil
}

