package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName  = "Бронирования"
	pageSize   = 200
	dateLayout = "02.01.2006 15:04"
)

var headers = []string{"ID", "Вещь", "ID вещи", "Арендатор", "Начало (UTC)", "Окончание (UTC)", "Статус"}

var statusColors = map[models.BookingStatus]string{
	models.StatusApproved: "#E2EFDA",
	models.StatusWaiting:  "#FFF2CC",
	models.StatusRejected: "#F8CBAD",
}

// OwnerBookingLister is the part of the booking engine the exporter reads from.
type OwnerBookingLister interface {
	ListForOwner(ctx context.Context, userID int64, state string, page models.Page) ([]*models.Booking, error)
}

// BookingExporter renders an owner's bookings into an xlsx workbook.
type BookingExporter struct {
	bookings OwnerBookingLister
	dir      string
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingExporter(bookings OwnerBookingLister, dir string, logger *zerolog.Logger) *BookingExporter {
	return &BookingExporter{
		bookings: bookings,
		dir:      dir,
		logger:   logger,
		now:      time.Now,
	}
}

// WriteOwnerBookings streams the workbook for ownerID filtered by state into w.
func (e *BookingExporter) WriteOwnerBookings(ctx context.Context, ownerID int64, state string, w io.Writer) error {
	f, err := e.build(ctx, ownerID, state)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveOwnerBookings writes the workbook into the export directory and returns its path.
func (e *BookingExporter) SaveOwnerBookings(ctx context.Context, ownerID int64, state string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.build(ctx, ownerID, state)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("bookings_owner_%d_%s.xlsx", ownerID, e.now().Format("20060102_150405"))
	filePath := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int64("owner_id", ownerID).Msg("Excel file created")
	return filePath, nil
}

func (e *BookingExporter) collect(ctx context.Context, ownerID int64, state string) ([]*models.Booking, error) {
	var all []*models.Booking
	for from := 0; ; from += pageSize {
		page, err := e.bookings.ListForOwner(ctx, ownerID, state, models.Page{From: from, Size: pageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func (e *BookingExporter) build(ctx context.Context, ownerID int64, state string) (*excelize.File, error) {
	bookings, err := e.collect(ctx, ownerID, state)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	if err := writeHeader(f); err != nil {
		f.Close()
		return nil, err
	}

	styles := make(map[models.BookingStatus]int, len(statusColors))
	for status, color := range statusColors {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err == nil {
			styles[status] = style
		}
	}

	for i, b := range bookings {
		row := i + 2
		values := []interface{}{
			b.ID,
			b.ItemName,
			b.ItemID,
			b.BookerID,
			b.Start.UTC().Format(dateLayout),
			b.End.UTC().Format(dateLayout),
			string(b.Status),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := styles[b.Status]; ok {
			statusCell, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellStyle(sheetName, statusCell, statusCell, style)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "B", 30)
	_ = f.SetColWidth(sheetName, "C", "G", 18)

	return f, nil
}

func writeHeader(f *excelize.File) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &row); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}
	lastCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheetName, "A1", lastCell, style)
}
