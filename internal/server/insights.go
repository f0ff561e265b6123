package server

import (
	"fmt"
	"math"
	"sort"

	"github.com/joshdurbin/komoot-stats/internal/tours"
)

// Insight represents a single AI-friendly insight about the data
type Insight struct {
	Type    string `json:"type"`    // e.g., "trend", "achievement", "warning", "suggestion"
	Message string `json:"message"` // Human-readable insight
}

// SuggestedAction represents a suggested next tool call
type SuggestedAction struct {
	Tool        string `json:"tool"`        // Tool name to call
	Description string `json:"description"` // Why this action is suggested
	Priority    string `json:"priority"`    // "high", "medium", "low"
}

// InsightGenerator provides methods for generating insights from data
type InsightGenerator struct{}

// NewInsightGenerator creates a new insight generator
func NewInsightGenerator() *InsightGenerator {
	return &InsightGenerator{}
}

// GenerateProgressInsights generates insights about the change of a metric
func (g *InsightGenerator) GenerateProgressInsights(
	currentValue, previousValue float64,
	metric string,
	higherIsBetter bool,
) []Insight {
	var insights []Insight

	if previousValue == 0 {
		return insights
	}

	changePercent := ((currentValue - previousValue) / previousValue) * 100
	improving := (higherIsBetter && changePercent > 0) || (!higherIsBetter && changePercent < 0)

	absChange := math.Abs(changePercent)

	if absChange < 5 {
		insights = append(insights, Insight{
			Type:    "trend",
			Message: fmt.Sprintf("Your %s is stable (%.1f%% change)", metric, changePercent),
		})
	} else if improving {
		intensity := "up"
		if absChange > 20 {
			intensity = "well up"
		}
		insights = append(insights, Insight{
			Type:    "achievement",
			Message: fmt.Sprintf("Your %s is %s (%.1f%% more)", metric, intensity, absChange),
		})
	} else {
		intensity := "down"
		if absChange > 20 {
			intensity = "well down"
		}
		insights = append(insights, Insight{
			Type:    "warning",
			Message: fmt.Sprintf("Your %s is %s (%.1f%% less)", metric, intensity, absChange),
		})
	}

	return insights
}

// GenerateWeekComparisonInsights compares a week against the week before it
func (g *InsightGenerator) GenerateWeekComparisonInsights(current, previous tours.WeekStats) []Insight {
	insights := make([]Insight, 0)

	currentTotal := totalDistance(current.Distances)
	previousTotal := totalDistance(previous.Distances)

	if currentTotal == 0 && previousTotal == 0 {
		insights = append(insights, Insight{
			Type:    "suggestion",
			Message: "No tours recorded in either week",
		})
		return insights
	}

	if previousTotal == 0 {
		insights = append(insights, Insight{
			Type:    "achievement",
			Message: fmt.Sprintf("Back at it: %s this week after an empty week", formatDistance(currentTotal)),
		})
	} else {
		insights = append(insights, g.GenerateProgressInsights(currentTotal, previousTotal, "weekly distance", true)...)
	}

	// Call out sports that only appear in one of the two weeks
	for _, sport := range sortedSports(current.Distances) {
		if previous.Distances[sport] == 0 && current.Distances[sport] > 0 {
			insights = append(insights, Insight{
				Type:    "trend",
				Message: fmt.Sprintf("%s is new this week (%s)", sport, formatDistance(current.Distances[sport])),
			})
		}
	}
	for _, sport := range sortedSports(previous.Distances) {
		if current.Distances[sport] == 0 && previous.Distances[sport] > 0 {
			insights = append(insights, Insight{
				Type:    "trend",
				Message: fmt.Sprintf("No %s this week, %s the week before", sport, formatDistance(previous.Distances[sport])),
			})
		}
	}

	return insights
}

func totalDistance(distances map[tours.SportType]float64) float64 {
	var total float64
	for _, d := range distances {
		total += d
	}
	return total
}

func sortedSports(distances map[tours.SportType]float64) []tours.SportType {
	sports := make([]tours.SportType, 0, len(distances))
	for sport := range distances {
		sports = append(sports, sport)
	}
	sort.Slice(sports, func(i, j int) bool { return sports[i] < sports[j] })
	return sports
}

// SuggestNextActions suggests logical next tool calls based on context
func SuggestNextActions(context string) []SuggestedAction {
	suggestions := make([]SuggestedAction, 0)

	switch context {
	case "tours":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "get_weekly_activity_stats",
				Description: "See weekly distance per sport",
				Priority:    "medium",
			},
			SuggestedAction{
				Tool:        "rename_tour",
				Description: "Fix a tour name or its bike suffix",
				Priority:    "low",
			},
		)
	case "months":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "get_weekly_activity_stats",
				Description: "Break a month down into weeks",
				Priority:    "medium",
			},
			SuggestedAction{
				Tool:        "get_personal_records",
				Description: "See your longest and biggest tours",
				Priority:    "low",
			},
		)
	case "weeks":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "list_tours_by_month",
				Description: "See the tours behind the weekly totals",
				Priority:    "medium",
			},
			SuggestedAction{
				Tool:        "find_tours",
				Description: "Find tours of one sport in a date range",
				Priority:    "low",
			},
		)
	case "records":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "find_tours",
				Description: "Find tours similar to your records",
				Priority:    "medium",
			},
			SuggestedAction{
				Tool:        "get_weekly_activity_stats",
				Description: "Check how recent weeks compare",
				Priority:    "low",
			},
		)
	}

	return suggestions
}
