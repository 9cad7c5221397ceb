package models

// IncentiveList is the ordered list of incentive strings for one month
// bucket within an organization. Items are appended and removed by index.
type IncentiveList struct {
	OrgID    string
	MonthKey string
	Items    []string
}
