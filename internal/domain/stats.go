package domain

type Statistics struct {
	Total              int     `json:"totalSent"`
	Responded          int     `json:"responses"`
	Positive           int     `json:"positive"`
	Pending            int     `json:"pending"`
	CompaniesContacted int     `json:"companiesContacted"`
	FollowUpsNeeded    int     `json:"followupsNeeded"`
	ResponseRate       float64 `json:"responseRate"`
}

type TimelinePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ResponseTimeStats summarises days-to-respond over responded applications.
// All fields are zero when nothing has been answered yet.
type ResponseTimeStats struct {
	Count   int     `json:"count"`
	MinDays int     `json:"minResponseDays"`
	AvgDays float64 `json:"avgResponseDays"`
	MaxDays int     `json:"maxResponseDays"`
}

type Report struct {
	Statistics      Statistics          `json:"statistics"`
	ResponseTimes   ResponseTimeStats   `json:"responseTimes"`
	RecentPositive  []PositiveResponse  `json:"recentPositive"`
	Timeline        []TimelinePoint     `json:"timeline"`
	FollowUpsQueued []FollowUpCandidate `json:"followUps"`
}
