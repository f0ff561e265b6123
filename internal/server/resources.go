package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/joshdurbin/komoot-stats/internal/logging"
	"github.com/joshdurbin/komoot-stats/internal/tours"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	latestToursURI   = "komoot://tours/latest"
	currentWeekURI   = "komoot://stats/week/current"
	personalBestsURI = "komoot://records/personal"
	latestToursCount = 10
)

// CurrentWeekSummary is the current week's bucket with its tours
type CurrentWeekSummary struct {
	Week          tours.WeekMonthYearPair     `json:"week"`
	Distances     map[tours.SportType]float64 `json:"distance_by_sport_type"`
	TotalDistance string                      `json:"total_distance"`
	Tours         []TourSummary               `json:"tours"`
}

// registerResources registers all MCP resources for the server
func (s *Server) registerResources() {
	logging.Debug("Registering MCP resources")

	// Static resource: Latest tours
	s.mcp.AddResource(&mcp.Resource{
		URI:         latestToursURI,
		Name:        "latest_tours",
		Description: "The most recent deduplicated Komoot tours",
		MIMEType:    "application/json",
	}, s.readLatestTours)

	// Static resource: Current week stats
	s.mcp.AddResource(&mcp.Resource{
		URI:         currentWeekURI,
		Name:        "current_week_stats",
		Description: "Distance per sport type for the current week, with its tours",
		MIMEType:    "application/json",
	}, s.readCurrentWeekStats)

	// Static resource: Personal records
	s.mcp.AddResource(&mcp.Resource{
		URI:         personalBestsURI,
		Name:        "personal_records",
		Description: "Personal bests across all record categories",
		MIMEType:    "application/json",
	}, s.readPersonalRecords)

	// Resource template: Tour by ID
	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "komoot://tours/{id}",
		Name:        "tour_by_id",
		Description: "Fetch a specific tour by its Komoot ID",
		MIMEType:    "application/json",
	}, s.readTourByID)

	logging.Debug("MCP resources registered", "count", 4)
}

// readLatestTours returns the most recent tours
func (s *Server) readLatestTours(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	logging.Info("MCP resource read", "resource", "latest_tours")

	all := s.snapshots.Load().Tours
	if len(all) > latestToursCount {
		all = all[:latestToursCount]
	}

	summaries := make([]TourSummary, 0, len(all))
	for _, t := range all {
		summaries = append(summaries, s.convertTour(t))
	}

	return jsonResource(latestToursURI, summaries)
}

// readCurrentWeekStats returns the bucket for the week containing now
func (s *Server) readCurrentWeekStats(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	logging.Info("MCP resource read", "resource", "current_week_stats")

	snap := s.snapshots.Load()
	weekStart := tours.StartOfWeek(s.now(), s.loc)

	var bucket *tours.WeekStats
	for i := range snap.Weeks {
		if snap.Weeks[i].Week.StartEpochSeconds == weekStart.Unix() {
			bucket = &snap.Weeks[i]
			break
		}
	}
	if bucket == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      currentWeekURI,
					MIMEType: "application/json",
					Text:     `{"error": "No stats for the current week yet"}`,
				},
			},
		}, nil
	}

	summary := CurrentWeekSummary{
		Week:          bucket.Week,
		Distances:     bucket.Distances,
		TotalDistance: formatDistance(totalDistance(bucket.Distances)),
		Tours:         []TourSummary{},
	}
	weekEnd := weekStart.AddDate(0, 0, 7)
	for _, t := range snap.Tours {
		start, err := t.StartTime()
		if err != nil || start.Before(weekStart) || !start.Before(weekEnd) {
			continue
		}
		summary.Tours = append(summary.Tours, s.convertTour(t))
	}

	return jsonResource(currentWeekURI, summary)
}

// readPersonalRecords returns all personal bests
func (s *Server) readPersonalRecords(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	logging.Info("MCP resource read", "resource", "personal_records")

	records := s.computeRecords(s.snapshots.Load().Tours, "", allRecordCategories)
	return jsonResource(personalBestsURI, records)
}

// readTourByID returns a specific tour by its Komoot ID
func (s *Server) readTourByID(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	// URI format: komoot://tours/{id}
	uri := req.Params.URI
	parts := strings.Split(uri, "/")
	if len(parts) < 2 {
		return nil, NewInvalidInputError("invalid tour URI format")
	}

	idStr := parts[len(parts)-1]
	tourID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, NewInvalidInputErrorWithDetails("invalid tour ID", idStr)
	}

	logging.Info("MCP resource read", "resource", "tour_by_id", "id", tourID)

	for _, t := range s.snapshots.Load().Tours {
		if t.ID == tourID {
			return jsonResource(uri, s.convertTour(t))
		}
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     fmt.Sprintf(`{"error": "Tour %d not found"}`, tourID),
			},
		},
	}, nil
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, NewInternalErrorWithCause("failed to marshal resource", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(jsonData),
			},
		},
	}, nil
}
