package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joshdurbin/komoot-stats/internal/komoot"
	"github.com/joshdurbin/komoot-stats/internal/logging"
	"github.com/joshdurbin/komoot-stats/internal/pagination"
	syncsvc "github.com/joshdurbin/komoot-stats/internal/sync"
	"github.com/joshdurbin/komoot-stats/internal/tours"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultTourLimit  = 20
	maxTourLimit      = 100
	defaultMonthLimit = 6
	defaultWeekLimit  = 8
)

// ptr returns a pointer to the given value - useful for optional fields in structs
func ptr[T any](v T) *T {
	return &v
}

// SnapshotReader gives access to the latest published tour snapshot
type SnapshotReader interface {
	Load() *syncsvc.Snapshot
}

// TourRenamer renames a tour upstream
type TourRenamer interface {
	RenameTour(ctx context.Context, tourID int64, name string) error
}

// Server wraps the MCP server and the tour snapshot
type Server struct {
	mcp       *mcp.Server
	snapshots SnapshotReader
	renamer   TourRenamer
	loc       *time.Location
	now       func() time.Time
}

// MCPServer returns the underlying MCP server (for use with HTTP/SSE transport)
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// New creates a new MCP server with tour query tools. renamer may be nil, in
// which case rename_tour is not offered.
func New(snapshots SnapshotReader, renamer TourRenamer, loc *time.Location) *Server {
	logging.Info("MCP server initializing", "name", "komoot-stats", "version", "1.0.0")

	if loc == nil {
		loc = time.Local
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "komoot-stats",
		Version: "1.0.0",
	}, nil)

	s := &Server{
		mcp:       mcpServer,
		snapshots: snapshots,
		renamer:   renamer,
		loc:       loc,
		now:       time.Now,
	}

	logging.Debug("Registering MCP tools")
	s.registerTools()
	s.registerRecordsTools()

	logging.Debug("Registering MCP resources")
	s.registerResources()

	logging.Debug("Registering MCP prompts")
	s.registerPrompts()

	logging.Info("MCP server initialized", "rename_enabled", renamer != nil)
	return s
}

// Run starts the MCP server over stdio transport
func (s *Server) Run(ctx context.Context) error {
	logging.Info("MCP server starting")
	defer logging.Info("MCP server stopped")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Input types

// ListToursByMonthInput - input for the monthly tour listing
type ListToursByMonthInput struct {
	Offset int `json:"offset,omitempty" jsonschema:"Index of the first month to return. 0 is the most recent month with tours. Default: 0."`
	Limit  int `json:"limit,omitempty" jsonschema:"Number of months to return. Default: 6."`
}

// WeeklyStatsInput - input for the weekly distance stats
type WeeklyStatsInput struct {
	Offset int `json:"offset,omitempty" jsonschema:"Index of the first week to return. 0 is the current week. Default: 0."`
	Limit  int `json:"limit,omitempty" jsonschema:"Number of weeks to return. Default: 8."`
}

// FindToursInput - input for searching tours
type FindToursInput struct {
	ID        int64  `json:"id,omitempty" jsonschema:"Get a specific tour by its Komoot ID."`
	SportType string `json:"sport_type,omitempty" jsonschema:"Filter by sport: Biking, EBiking, Running, Hiking or Other."`
	StartDate string `json:"start_date,omitempty" jsonschema:"Only tours on or after this date, YYYY-MM-DD."`
	EndDate   string `json:"end_date,omitempty" jsonschema:"Only tours on or before this date, YYYY-MM-DD."`
	Limit     int    `json:"limit,omitempty" jsonschema:"Number of tours to return. Default: 20, Max: 100."`
}

// RenameTourInput - input for renaming a tour
type RenameTourInput struct {
	ID   int64  `json:"id" jsonschema:"Komoot ID of the tour to rename."`
	Name string `json:"name" jsonschema:"New tour name. Keep a trailing bike suffix such as (R) to preserve bike attribution."`
}

// Output types

// MonthlyToursOutput is one page of monthly tour groups
type MonthlyToursOutput struct {
	Page             pagination.Response[tours.MonthBucket] `json:"page"`
	RefreshedAt      string                                 `json:"refreshed_at,omitempty"`
	SuggestedActions []SuggestedAction                      `json:"suggested_actions"`
}

// WeeklyStatsOutput is one page of weekly distance buckets
type WeeklyStatsOutput struct {
	Page             pagination.Response[tours.WeekStats] `json:"page"`
	RefreshedAt      string                               `json:"refreshed_at,omitempty"`
	Insights         []Insight                            `json:"insights"`
	SuggestedActions []SuggestedAction                    `json:"suggested_actions"`
}

// FindToursOutput lists tours matching a search
type FindToursOutput struct {
	Tours            []TourSummary     `json:"tours"`
	TotalMatching    int               `json:"total_matching"`
	Filter           string            `json:"filter,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggested_actions"`
}

// RenameTourOutput confirms a rename
type RenameTourOutput struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// TourSummary is a human-readable view of a tour
type TourSummary struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	SportType tours.SportType `json:"sport_type"`
	Bike      string          `json:"bike,omitempty"`
	Date      string          `json:"date"`
	Distance  string          `json:"distance"`
	Duration  string          `json:"duration"`
	Elevation string          `json:"elevation_gain,omitempty"`
	MapImage  string          `json:"map_image,omitempty"`
}

func (s *Server) registerTools() {
	logging.Debug("Registering tool", "name", "list_tours_by_month")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "list_tours_by_month",
		Description: `List recorded Komoot tours grouped by calendar month, most recent month first.

Use when:
- User asks "What did I do in March?" or "Show my recent tours"
- User wants per-month distance totals by sport

Parameters:
- offset (integer): Index of the first month. Default: 0.
- limit (integer): Number of months. Default: 6.

Returns: Months with their tours (display name, sport, bike, date, distance, duration, elevation, map image) and distance per sport type, plus next/previous page cursors.

Example: {"offset": 0, "limit": 3}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "List Tours by Month",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.listToursByMonth)

	logging.Debug("Registering tool", "name", "get_weekly_activity_stats")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_weekly_activity_stats",
		Description: `Get distance per sport type for each Monday-to-Sunday week, from the current week back to the week of the oldest tour. Weeks without tours are included with no distances.

Use when:
- User asks "How far did I ride this week?" or "Weekly mileage"
- User wants to compare recent weeks

Parameters:
- offset (integer): Index of the first week, 0 is the current week. Default: 0.
- limit (integer): Number of weeks. Default: 8.

Returns: Weeks as {first: week labels, second: meters per sport type}, next/previous cursors and week-over-week insights.

Example: {"limit": 4}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Weekly Activity Stats",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.getWeeklyActivityStats)

	logging.Debug("Registering tool", "name", "find_tours")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "find_tours",
		Description: `Search deduplicated tours by ID, sport type or date range, most recent first.

Use when:
- User asks "Show my last hikes" or "Which rides did I do in May?"
- User needs a tour ID before renaming it

Parameters:
- id (integer): A specific Komoot tour ID.
- sport_type (string): Biking, EBiking, Running, Hiking or Other.
- start_date, end_date (string): YYYY-MM-DD bounds, inclusive.
- limit (integer): Default 20, max 100.

Example: {"sport_type": "Hiking", "start_date": "2024-05-01"}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Find Tours",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.findTours)

	if s.renamer == nil {
		return
	}

	logging.Debug("Registering tool", "name", "rename_tour")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "rename_tour",
		Description: `Rename a tour on Komoot. The new name shows up in listings after the next refresh.

Parameters:
- id (integer): Komoot tour ID (see find_tours).
- name (string): New name. A trailing "(P)", "(R)" or "(C)" selects the bike.

Example: {"id": 123456789, "name": "Morning Ride (R)"}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Rename Tour",
			ReadOnlyHint:    false,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(true),
			DestructiveHint: ptr(false),
		},
	}, s.renameTour)
}

func (s *Server) listToursByMonth(ctx context.Context, req *mcp.CallToolRequest, input ListToursByMonthInput) (*mcp.CallToolResult, MonthlyToursOutput, error) {
	logging.Info("MCP tool call", "tool", "list_tours_by_month", "offset", input.Offset, "limit", input.Limit)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "list_tours_by_month", "input", logging.ToJSON(input))
	}

	snap := s.snapshots.Load()
	window, err := toolWindow(input.Offset, input.Limit, defaultMonthLimit, len(snap.Months))
	if err != nil {
		return nil, MonthlyToursOutput{}, err
	}

	return nil, MonthlyToursOutput{
		Page:             pagination.Paginate(snap.Months, window),
		RefreshedAt:      formatRefreshedAt(snap),
		SuggestedActions: SuggestNextActions("months"),
	}, nil
}

func (s *Server) getWeeklyActivityStats(ctx context.Context, req *mcp.CallToolRequest, input WeeklyStatsInput) (*mcp.CallToolResult, WeeklyStatsOutput, error) {
	logging.Info("MCP tool call", "tool", "get_weekly_activity_stats", "offset", input.Offset, "limit", input.Limit)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "get_weekly_activity_stats", "input", logging.ToJSON(input))
	}

	snap := s.snapshots.Load()
	window, err := toolWindow(input.Offset, input.Limit, defaultWeekLimit, len(snap.Weeks))
	if err != nil {
		return nil, WeeklyStatsOutput{}, err
	}

	page := pagination.Paginate(snap.Weeks, window)
	insights := []Insight{}
	if len(page.Data) >= 2 {
		insights = NewInsightGenerator().GenerateWeekComparisonInsights(page.Data[0], page.Data[1])
	}

	return nil, WeeklyStatsOutput{
		Page:             page,
		RefreshedAt:      formatRefreshedAt(snap),
		Insights:         insights,
		SuggestedActions: SuggestNextActions("weeks"),
	}, nil
}

func (s *Server) findTours(ctx context.Context, req *mcp.CallToolRequest, input FindToursInput) (*mcp.CallToolResult, FindToursOutput, error) {
	logging.Info("MCP tool call", "tool", "find_tours", "id", input.ID, "sport_type", input.SportType)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "find_tours", "input", logging.ToJSON(input))
	}

	start, end, err := parseDateRange(input.StartDate, input.EndDate, s.loc)
	if err != nil {
		return nil, FindToursOutput{}, err
	}

	limit := applyLimit(input.Limit)
	output := FindToursOutput{
		Tours:  []TourSummary{},
		Filter: buildFilterDesc(input),
	}

	for _, t := range s.snapshots.Load().Tours {
		if input.ID > 0 && t.ID != input.ID {
			continue
		}
		if input.SportType != "" && string(tours.ClassifySport(t.Sport, t.Name)) != input.SportType {
			continue
		}
		if !start.IsZero() || !end.IsZero() {
			tourStart, err := t.StartTime()
			if err != nil {
				continue
			}
			if (!start.IsZero() && tourStart.Before(start)) || (!end.IsZero() && !tourStart.Before(end)) {
				continue
			}
		}

		output.TotalMatching++
		if len(output.Tours) < limit {
			output.Tours = append(output.Tours, s.convertTour(t))
		}
	}

	if input.ID > 0 && output.TotalMatching == 0 {
		return nil, FindToursOutput{}, NewNotFoundErrorWithID("tour", input.ID)
	}

	output.SuggestedActions = SuggestNextActions("tours")
	return nil, output, nil
}

func (s *Server) renameTour(ctx context.Context, req *mcp.CallToolRequest, input RenameTourInput) (*mcp.CallToolResult, RenameTourOutput, error) {
	logging.Info("MCP tool call", "tool", "rename_tour", "id", input.ID, "name", input.Name)

	name := strings.TrimSpace(input.Name)
	if input.ID <= 0 {
		return nil, RenameTourOutput{}, NewInvalidInputError("id must be a positive tour ID")
	}
	if name == "" {
		return nil, RenameTourOutput{}, NewInvalidInputError("name must not be empty")
	}

	if err := s.renamer.RenameTour(ctx, input.ID, name); err != nil {
		logging.Error("rename_tour failed", "id", input.ID, "error", err)
		return nil, RenameTourOutput{}, NewUpstreamError("rename", err)
	}

	return nil, RenameTourOutput{
		ID:      input.ID,
		Name:    name,
		Message: "Tour renamed. Listings pick up the new name after the next refresh.",
	}, nil
}

// toolWindow applies a default limit and validates the window against total
func toolWindow(offset, limit, defaultLimit, total int) (pagination.Request, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	window, err := pagination.Window(offset, limit, total)
	if err != nil {
		if total == 0 {
			return pagination.Request{}, NewInvalidInputErrorWithDetails("no data available yet", "the first refresh has not produced any tours")
		}
		return pagination.Request{}, NewInvalidInputErrorWithDetails("invalid offset or limit", err.Error())
	}
	return window, nil
}

func (s *Server) convertTour(t komoot.Tour) TourSummary {
	summary := TourSummary{
		ID:        t.ID,
		Name:      t.Name,
		SportType: tours.ClassifySport(t.Sport, t.Name),
		Date:      t.Date,
		Distance:  formatDistance(t.Distance),
		Duration:  formatDuration(int64(t.Duration)),
		MapImage:  t.MapImage.Src,
	}
	if t.ElevationUp > 0 {
		summary.Elevation = fmt.Sprintf("%.0f m", t.ElevationUp)
	}

	if public, err := tours.ToPublic(t, s.loc); err == nil {
		summary.Name = public.Name
		summary.Date = public.Date.Month.Name + " " + fmt.Sprint(public.Date.DayOfMonth) + ", " + fmt.Sprint(public.Date.Year)
		if public.BicycleInfo != nil {
			summary.Bike = public.BicycleInfo.Name
		}
	}
	return summary
}

func applyLimit(limit int) int {
	if limit <= 0 {
		return defaultTourLimit
	}
	if limit > maxTourLimit {
		return maxTourLimit
	}
	return limit
}

// parseDateRange parses inclusive YYYY-MM-DD bounds. The returned end is the
// start of the day after endDate.
func parseDateRange(startDate, endDate string, loc *time.Location) (time.Time, time.Time, error) {
	var start, end time.Time
	if startDate != "" {
		t, err := time.ParseInLocation("2006-01-02", startDate, loc)
		if err != nil {
			return time.Time{}, time.Time{}, NewInvalidInputErrorWithDetails("invalid start_date format, use YYYY-MM-DD", startDate)
		}
		start = t
	}
	if endDate != "" {
		t, err := time.ParseInLocation("2006-01-02", endDate, loc)
		if err != nil {
			return time.Time{}, time.Time{}, NewInvalidInputErrorWithDetails("invalid end_date format, use YYYY-MM-DD", endDate)
		}
		end = t.AddDate(0, 0, 1)
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return time.Time{}, time.Time{}, NewInvalidInputError("start_date must not be after end_date")
	}
	return start, end, nil
}

func buildFilterDesc(input FindToursInput) string {
	var parts []string
	if input.ID > 0 {
		parts = append(parts, fmt.Sprintf("id=%d", input.ID))
	}
	if input.SportType != "" {
		parts = append(parts, "sport_type="+input.SportType)
	}
	if input.StartDate != "" {
		parts = append(parts, "from "+input.StartDate)
	}
	if input.EndDate != "" {
		parts = append(parts, "to "+input.EndDate)
	}
	return strings.Join(parts, ", ")
}

func formatRefreshedAt(snap *syncsvc.Snapshot) string {
	if snap.Empty() {
		return ""
	}
	return snap.RefreshedAt.Format(time.RFC3339)
}

func formatDistance(meters float64) string {
	km := meters / 1000
	if km >= 1 {
		return fmt.Sprintf("%.2f km", km)
	}
	return fmt.Sprintf("%.0f m", meters)
}

func formatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}
	return fmt.Sprintf("%ds", secs)
}
