package models

// TrackPointFilter represents filter parameters for querying recorded track points
type TrackPointFilter struct {
	StartTime int64 `form:"startTime"` // Unix timestamp, 0 for no lower bound
	EndTime   int64 `form:"endTime"`   // Unix timestamp, 0 for no upper bound
	Page      int   `form:"page"`
	PageSize  int   `form:"pageSize"`
}

// TrackPointsResponse is one page of recorded track points
type TrackPointsResponse struct {
	Data       []TrackPoint `json:"data"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
}
