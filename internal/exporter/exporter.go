// Package exporter renders result sets as downloadable files.
package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/pkg/models"
	"gmaps-scraper/pkg/utils"
)

// Sentinel errors to allow precise mapping in handlers
var (
	ErrUnsupportedFormat = errors.New("unsupported_format")
	ErrRender            = errors.New("render_error")
	ErrStorageConfig     = errors.New("storage_configuration")
	ErrUpload            = errors.New("upload_failed")
)

// Format is an export file format
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet holding the results in spreadsheet exports
const SheetName = "Results"

// Formats lists the supported export formats
var Formats = []Format{FormatJSON, FormatCSV, FormatXLSX}

// IsSupported reports whether f is a supported export format
func IsSupported(f string) bool {
	for _, format := range Formats {
		if string(format) == f {
			return true
		}
	}
	return false
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// File is a rendered export
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Filename builds "<query>_<location>_<YYYYmmdd_HHMMSS>.<ext>"
func Filename(query, location string, now time.Time, format Format) string {
	return fmt.Sprintf("%s_%s_%s.%s",
		utils.SanitizeFilename(query),
		utils.SanitizeFilename(location),
		now.Format("20060102_150405"),
		format,
	)
}

// Export renders results in the given format. JSON carries the complete
// result set; CSV and XLSX carry the records matching filter with every
// column seen in them.
func Export(format Format, query, location string, results models.ResultSet, filter string, now time.Time) (*File, error) {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatJSON:
		data, err = renderJSON(results)
	case FormatCSV:
		data, err = renderCSV(results.Filter(filter))
	case FormatXLSX:
		data, err = renderXLSX(results.Filter(filter))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	return &File{
		Name:        Filename(query, location, now, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

func renderJSON(results models.ResultSet) ([]byte, error) {
	if results == nil {
		results = models.ResultSet{}
	}
	return json.MarshalIndent(results, "", "  ")
}

func renderCSV(results models.ResultSet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	columns := results.Keys()
	if len(columns) > 0 {
		if err := w.Write(columns); err != nil {
			return nil, err
		}
	}

	row := make([]string, len(columns))
	for _, record := range results {
		for i, column := range columns {
			row[i] = models.FormatCell(record[column])
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(results models.ResultSet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet is renamed so the workbook has exactly one sheet
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}

	columns := results.Keys()
	if len(columns) > 0 {
		header := make([]interface{}, len(columns))
		for i, column := range columns {
			header[i] = column
		}
		if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
			return nil, err
		}
	}

	for r, record := range results {
		row := make([]interface{}, len(columns))
		for i, column := range columns {
			row[i] = cellValue(record[column])
		}

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cellValue keeps scalars typed so spreadsheets can sort numeric columns
func cellValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool, float64, int, int64:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return models.FormatCell(t)
	}
}

// Uploader stores an export and returns where it can be fetched
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// NewUploader returns the Spaces uploader, or ErrStorageConfig when storage
// is not configured
func NewUploader(cfg *config.Config) (Uploader, error) {
	spaces, err := utils.NewSpacesClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageConfig, err)
	}
	return spaces, nil
}

// Upload stores the file under prefix and returns its URL
func Upload(ctx context.Context, uploader Uploader, prefix string, file *File) (string, error) {
	logger := logging.GetGlobalLogger()

	key := path.Join(strings.Trim(prefix, "/"), file.Name)
	url, err := uploader.Upload(ctx, key, file.ContentType, file.Data)
	if err != nil {
		logger.WithError(err).Error("Failed to upload export", map[string]interface{}{
			"object_key": key,
		})
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	return url, nil
}
