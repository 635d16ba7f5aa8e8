package callback

import (
	"time"

	"gmaps-scraper/pkg/models"
)

// previewRecords is how many records the bulk preview shows
const previewRecords = 2

// Preview builds an example of the payload the webhook will receive.
// The bulk preview lists the first two records followed by "..." when the
// set is larger; the individual preview shows record 1, or {} when empty.
func Preview(records models.ResultSet, mode models.DeliveryMode, now time.Time) map[string]interface{} {
	timestamp := now.Format(time.RFC3339Nano)

	if mode == models.DeliveryModeIndividual {
		data := models.Record{}
		if len(records) > 0 {
			data = records[0]
		}
		return map[string]interface{}{
			"timestamp":     timestamp,
			"record_number": 1,
			"total_records": len(records),
			"data":          data,
		}
	}

	shown := len(records)
	if shown > previewRecords {
		shown = previewRecords
	}
	data := make([]interface{}, 0, shown+1)
	for _, record := range records[:shown] {
		data = append(data, record)
	}
	if len(records) > previewRecords {
		data = append(data, "...")
	}

	return map[string]interface{}{
		"timestamp":     timestamp,
		"total_results": len(records),
		"data":          data,
	}
}
