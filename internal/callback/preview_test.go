package callback

import (
	"testing"
	"time"

	"gmaps-scraper/pkg/models"
)

func TestPreview_BulkTruncatesAfterTwo(t *testing.T) {
	preview := Preview(sampleRecords(5), models.DeliveryModeBulk, time.Now())

	data := preview["data"].([]interface{})
	if len(data) != 3 {
		t.Fatalf("len(data) = %d, want 3", len(data))
	}
	if data[2] != "..." {
		t.Errorf("data[2] = %v, want \"...\"", data[2])
	}
	if preview["total_results"] != 5 {
		t.Errorf("total_results = %v", preview["total_results"])
	}
}

func TestPreview_BulkSmallSetHasNoEllipsis(t *testing.T) {
	preview := Preview(sampleRecords(2), models.DeliveryModeBulk, time.Now())

	if data := preview["data"].([]interface{}); len(data) != 2 {
		t.Errorf("len(data) = %d, want 2", len(data))
	}
}

func TestPreview_Individual(t *testing.T) {
	records := sampleRecords(3)

	preview := Preview(records, models.DeliveryModeIndividual, time.Now())
	if preview["record_number"] != 1 || preview["total_records"] != 3 {
		t.Errorf("preview = %v", preview)
	}
	if preview["data"].(models.Record).Title() != "Cafe 0" {
		t.Errorf("data = %v", preview["data"])
	}

	empty := Preview(nil, models.DeliveryModeIndividual, time.Now())
	if data := empty["data"].(models.Record); len(data) != 0 {
		t.Errorf("empty preview data = %v, want {}", data)
	}
}
