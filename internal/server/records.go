package server

import (
	"context"
	"fmt"
	"strconv"

	"github.com/joshdurbin/komoot-stats/internal/komoot"
	"github.com/joshdurbin/komoot-stats/internal/logging"
	"github.com/joshdurbin/komoot-stats/internal/tours"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Record categories
const (
	recordLongestDistance  = "longest_distance"
	recordLongestDuration  = "longest_duration"
	recordHighestElevation = "highest_elevation"
	recordMostCalories     = "most_calories"
)

var allRecordCategories = []string{recordLongestDistance, recordLongestDuration, recordHighestElevation, recordMostCalories}

// Input types

// GetPersonalRecordsInput - input for retrieving personal records
type GetPersonalRecordsInput struct {
	SportType  string   `json:"sport_type,omitempty" jsonschema:"Filter records to one sport: Biking, EBiking, Running, Hiking or Other. Leave empty for records across all tours."`
	Categories []string `json:"categories,omitempty" jsonschema:"Which record categories to include. Valid values: 'longest_distance', 'longest_duration', 'highest_elevation', 'most_calories'. Omit for all categories."`
}

// Output types

type GetPersonalRecordsOutput struct {
	SportType        string            `json:"sport_type,omitempty"`
	Records          []PersonalRecord  `json:"records"`
	Insights         []Insight         `json:"insights"`
	SuggestedActions []SuggestedAction `json:"suggested_actions"`
}

type PersonalRecord struct {
	Category     string      `json:"category"`
	Tour         TourSummary `json:"tour"`
	RecordValue  string      `json:"record_value"`
	RecordMetric string      `json:"record_metric"`
}

// registerRecordsTools registers the personal records tool
func (s *Server) registerRecordsTools() {
	logging.Debug("Registering tool", "name", "get_personal_records")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_personal_records",
		Description: `Get personal best tours: longest distance, longest duration, most climbing and most calories.

Use when:
- User asks "What's my longest ride?" or "Biggest climb ever?"
- User wants to see their all-time best tours

Parameters:
- sport_type (string): Biking, EBiking, Running, Hiking or Other. Leave empty for overall bests.
- categories (array): "longest_distance", "longest_duration", "highest_elevation", "most_calories". Omit for all.

Example: {"sport_type": "Hiking"} or {"categories": ["highest_elevation"]}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Get Personal Records",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.getPersonalRecords)
}

// getPersonalRecords finds the best deduplicated tour per category
func (s *Server) getPersonalRecords(ctx context.Context, req *mcp.CallToolRequest, input GetPersonalRecordsInput) (*mcp.CallToolResult, GetPersonalRecordsOutput, error) {
	logging.Info("MCP tool call", "tool", "get_personal_records", "sport_type", input.SportType, "categories", input.Categories)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "get_personal_records", "input", logging.ToJSON(input))
	}

	categories := input.Categories
	if len(categories) == 0 {
		categories = allRecordCategories
	}
	for _, c := range categories {
		if !isRecordCategory(c) {
			return nil, GetPersonalRecordsOutput{}, NewInvalidInputErrorWithDetails("unknown record category", c)
		}
	}

	records := s.computeRecords(s.snapshots.Load().Tours, tours.SportType(input.SportType), categories)

	return nil, GetPersonalRecordsOutput{
		SportType:        input.SportType,
		Records:          records,
		Insights:         []Insight{{Type: "summary", Message: generateRecordsInsight(records, input.SportType)}},
		SuggestedActions: SuggestNextActions("records"),
	}, nil
}

// computeRecords returns one record per requested category. Ties keep the most
// recent tour, since tours arrive most recent first.
func (s *Server) computeRecords(all []komoot.Tour, sport tours.SportType, categories []string) []PersonalRecord {
	records := make([]PersonalRecord, 0, len(categories))

	for _, category := range categories {
		var best *komoot.Tour
		for i := range all {
			t := &all[i]
			if sport != "" && tours.ClassifySport(t.Sport, t.Name) != sport {
				continue
			}
			if best == nil || recordValue(category, t) > recordValue(category, best) {
				best = t
			}
		}
		if best == nil || recordValue(category, best) <= 0 {
			continue
		}

		value, metric := formatRecord(category, best)
		records = append(records, PersonalRecord{
			Category:     category,
			Tour:         s.convertTour(*best),
			RecordValue:  value,
			RecordMetric: metric,
		})
	}

	return records
}

func isRecordCategory(c string) bool {
	for _, known := range allRecordCategories {
		if c == known {
			return true
		}
	}
	return false
}

func recordValue(category string, t *komoot.Tour) float64 {
	switch category {
	case recordLongestDistance:
		return t.Distance
	case recordLongestDuration:
		return float64(t.Duration)
	case recordHighestElevation:
		return t.ElevationUp
	case recordMostCalories:
		return float64(t.KcalActive)
	}
	return 0
}

func formatRecord(category string, t *komoot.Tour) (string, string) {
	switch category {
	case recordLongestDistance:
		return formatDistance(t.Distance), "distance"
	case recordLongestDuration:
		return formatDuration(int64(t.Duration)), "duration"
	case recordHighestElevation:
		return fmt.Sprintf("%.0f m", t.ElevationUp), "elevation_gain"
	case recordMostCalories:
		return formatCalories(t.KcalActive), "calories"
	}
	return "", ""
}

// formatCalories formats calories value
func formatCalories(calories int) string {
	return formatWithCommas(calories) + " kcal"
}

// formatWithCommas adds thousand separators to a number
func formatWithCommas(n int) string {
	if n < 1000 {
		return strconv.Itoa(n)
	}
	str := ""
	for n > 0 {
		if len(str) > 0 && len(str)%4 == 3 {
			str = "," + str
		}
		str = string(rune('0'+n%10)) + str
		n /= 10
	}
	return str
}

// generateRecordsInsight creates a summary insight for the records
func generateRecordsInsight(records []PersonalRecord, sportType string) string {
	if len(records) == 0 {
		return "No personal records found"
	}

	typeStr := "across all tours"
	if sportType != "" {
		typeStr = "for " + sportType
	}

	return "Found " + strconv.Itoa(len(records)) + " personal records " + typeStr
}
