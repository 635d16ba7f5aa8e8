package adapters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gmaps-scraper/internal/logging/types"
)

// formatEntry renders an entry in the requested format; unknown formats fall back to JSON
func formatEntry(format string, entry *types.LogEntry, colorize func(string) string) (string, error) {
	switch strings.ToLower(format) {
	case "text":
		return formatText(entry, colorize), nil
	default:
		return formatJSON(entry)
	}
}

func formatJSON(entry *types.LogEntry) (string, error) {
	logData := make(map[string]interface{}, len(entry.Fields)+3)
	for k, v := range entry.Fields {
		logData[k] = v
	}
	// reserved keys win over fields
	logData["level"] = entry.Level.String()
	logData["message"] = entry.Message
	logData["time"] = entry.Timestamp.Format(time.RFC3339)

	data, err := json.Marshal(logData)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatText(entry *types.LogEntry, colorize func(string) string) string {
	timestamp := entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00")
	level := strings.ToUpper(entry.Level.String())
	if colorize != nil {
		level = colorize(level)
	}

	output := fmt.Sprintf("%s [%s] %s", timestamp, level, entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := make([]string, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, fmt.Sprintf("%s=%v", k, entry.Fields[k]))
		}
		output += " " + strings.Join(fields, " ")
	}

	return output
}
