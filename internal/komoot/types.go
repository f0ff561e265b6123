package komoot

import (
	"fmt"
	"time"
)

// Tour represents a recorded Komoot tour from the API
type Tour struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Sport         string   `json:"sport"`
	Type          string   `json:"type"`
	Status        string   `json:"status"`
	Source        string   `json:"source"`
	Date          string   `json:"date"`
	ChangedAt     string   `json:"changed_at"`
	Duration      int      `json:"duration"` // seconds
	TimeInMotion  int      `json:"time_in_motion,omitempty"`
	Distance      float64  `json:"distance"` // meters
	ElevationUp   float64  `json:"elevation_up"`
	ElevationDown float64  `json:"elevation_down"`
	KcalActive    int      `json:"kcal_active"`
	KcalResting   int      `json:"kcal_resting"`
	MapImage      MapImage `json:"map_image"`
}

// MapImage is the rendered map reference attached to a tour
type MapImage struct {
	Src         string `json:"src"`
	Templated   bool   `json:"templated"`
	Type        string `json:"type"`
	Attribution string `json:"attribution"`
}

// StartTime parses the tour's start timestamp
func (t Tour) StartTime() (time.Time, error) {
	start, err := time.Parse(time.RFC3339, t.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date of tour %d: %w", t.ID, err)
	}
	return start, nil
}

// ToursPage is one page of the HAL envelope returned by the tours listing endpoint
type ToursPage struct {
	Embedded struct {
		Tours []Tour `json:"tours"`
	} `json:"_embedded"`
	Links struct {
		Next *Link `json:"next,omitempty"`
		Self *Link `json:"self,omitempty"`
	} `json:"_links"`
	Page PageInfo `json:"page"`
}

// Link is a HAL hyperlink
type Link struct {
	Href string `json:"href"`
}

// PageInfo describes the position of a page within the listing
type PageInfo struct {
	Number        int `json:"number"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

// NextURL returns the next-page link, or "" when this is the last page
func (p *ToursPage) NextURL() string {
	if p.Links.Next == nil {
		return ""
	}
	return p.Links.Next.Href
}

// account is the response of the email login endpoint
type account struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	User     struct {
		Username    string `json:"username"`
		DisplayName string `json:"displayname"`
	} `json:"user"`
}

type renameBody struct {
	Name string `json:"name"`
}

// FetchResult contains the result of a single page fetch
type FetchResult struct {
	Tours        []Tour
	Page         int
	TotalFetched int
	HasNext      bool
}

// ProgressCallback is called after each page is fetched
type ProgressCallback func(result FetchResult)
