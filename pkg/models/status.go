package models

// SportEventStatus odds_change 中携带的赛事状态
type SportEventStatus struct {
	Status       int           `xml:"status,attr"`
	MatchStatus  *int          `xml:"match_status,attr"`
	HomeScore    *float64      `xml:"home_score,attr"`
	AwayScore    *float64      `xml:"away_score,attr"`
	Reporting    *int          `xml:"reporting,attr"`
	Clock        *Clock        `xml:"clock"`
	PeriodScores []PeriodScore `xml:"period_scores>period_score"`
}

// Clock 比赛时钟
type Clock struct {
	MatchTime     string `xml:"match_time,attr,omitempty"`
	StoppageTime  string `xml:"stoppage_time,attr,omitempty"`
	RemainingTime string `xml:"remaining_time,attr,omitempty"`
	Stopped       *bool  `xml:"stopped,attr"`
}

// PeriodScore 分节比分
type PeriodScore struct {
	Number      int     `xml:"number,attr"`
	MatchStatus int     `xml:"match_status_code,attr"`
	HomeScore   float64 `xml:"home_score,attr"`
	AwayScore   float64 `xml:"away_score,attr"`
}
