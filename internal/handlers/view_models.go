package handlers

import (
	"readrise/internal/models"
	"readrise/internal/service"
)

// OrganizationView is the tenant payload shown on the picker and as
// branding on every screen
type OrganizationView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PrimaryColor string `json:"primaryColor"`
	AccentColor  string `json:"accentColor"`
	LogoURL      string `json:"logoUrl"`
	AuthProvider string `json:"authProvider"`
}

func organizationView(org *models.Organization) OrganizationView {
	return OrganizationView{
		ID:           org.ID,
		Name:         org.Name,
		PrimaryColor: org.PrimaryColor,
		AccentColor:  org.AccentColor,
		LogoURL:      org.LogoURL,
		AuthProvider: string(org.AuthProvider),
	}
}

func organizationViews(orgs []models.Organization) []OrganizationView {
	views := make([]OrganizationView, 0, len(orgs))
	for i := range orgs {
		views = append(views, organizationView(&orgs[i]))
	}
	return views
}

// KidView is a kid as shown to parents and admins
type KidView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Age          int    `json:"age"`
	Gender       string `json:"gender"`
	Ethnicity    string `json:"ethnicity"`
	Grade        string `json:"grade"`
	ReadingLevel string `json:"readingLevel"`
	School       string `json:"school"`
}

func kidView(kid *models.Kid) KidView {
	return KidView{
		ID:           kid.ID,
		Name:         kid.Name,
		Age:          kid.Age,
		Gender:       kid.Gender,
		Ethnicity:    kid.Ethnicity,
		Grade:        kid.Grade,
		ReadingLevel: string(kid.ReadingLevel),
		School:       kid.School,
	}
}

// FamilyView is a family with its kids
type FamilyView struct {
	Code       string    `json:"code"`
	ParentName string    `json:"parentName"`
	OrgID      string    `json:"orgId"`
	Kids       []KidView `json:"kids"`
}

func familyView(family *models.Family) FamilyView {
	fv := FamilyView{
		Code:       family.Code,
		ParentName: family.ParentName,
		OrgID:      family.OrgID,
		Kids:       []KidView{},
	}
	for i := range family.Kids {
		fv.Kids = append(fv.Kids, kidView(&family.Kids[i]))
	}
	return fv
}

func familyViews(families []models.Family) []FamilyView {
	views := make([]FamilyView, 0, len(families))
	for i := range families {
		views = append(views, familyView(&families[i]))
	}
	return views
}

// GoalView is one checklist row: the goal plus whether it is checked for
// the week being shown
type GoalView struct {
	ID   int64  `json:"id"`
	Kind string `json:"kind"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// ChecklistView is the parent checklist for one kid and week
type ChecklistView struct {
	KidID     string     `json:"kidId"`
	WeekKey   string     `json:"weekKey"`
	Goals     []GoalView `json:"goals"`
	Complete  bool       `json:"complete"`
	Celebrate bool       `json:"celebrate"`
}

func checklistView(kidID, weekKey string, base []models.GradeGoal, added []models.AddedGoal, record *models.WeeklyCompletion, complete, celebrate bool) ChecklistView {
	cv := ChecklistView{
		KidID:     kidID,
		WeekKey:   weekKey,
		Goals:     []GoalView{},
		Complete:  complete,
		Celebrate: celebrate,
	}
	for _, g := range base {
		cv.Goals = append(cv.Goals, GoalView{ID: g.ID, Kind: "base", Text: g.Text, Done: record.HasBase(g.ID)})
	}
	for _, g := range added {
		cv.Goals = append(cv.Goals, GoalView{ID: g.ID, Kind: "added", Text: g.Text, Done: record.HasAdded(g.ID)})
	}
	return cv
}

// LogEntryView is one reading-log row
type LogEntryView struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Minutes int    `json:"minutes"`
	Pages   int    `json:"pages"`
	Mood    string `json:"mood"`
}

func logEntryViews(entries []models.ReadingLogEntry) []LogEntryView {
	views := make([]LogEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, LogEntryView{
			ID:      e.ID,
			Date:    e.DisplayDate,
			Title:   e.Title,
			Author:  e.Author,
			Minutes: e.Minutes,
			Pages:   e.Pages,
			Mood:    string(e.Mood),
		})
	}
	return views
}

// DashboardView is the parent dashboard payload for one kid
type DashboardView struct {
	Kid        KidView        `json:"kid"`
	Stats      StatsView      `json:"stats"`
	Points     int            `json:"points"`
	Log        []LogEntryView `json:"log"`
	Incentives []string       `json:"incentives"`
	MonthLabel string         `json:"monthLabel"`
}

// StatsView is the derived reading totals for one kid
type StatsView struct {
	MinutesTotal int `json:"minutesTotal"`
	PagesTotal   int `json:"pagesTotal"`
	UniqueBooks  int `json:"uniqueBooks"`
}

func statsView(stats *service.KidStats) StatsView {
	return StatsView{
		MinutesTotal: stats.MinutesTotal,
		PagesTotal:   stats.PagesTotal,
		UniqueBooks:  stats.UniqueBooks,
	}
}

// PrizeView is one prize-shop row
type PrizeView struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	PointsRequired int    `json:"pointsRequired"`
	Description    string `json:"description"`
	Icon           string `json:"icon"`
}

func prizeViews(prizes []models.Prize) []PrizeView {
	views := make([]PrizeView, 0, len(prizes))
	for _, p := range prizes {
		views = append(views, PrizeView{
			ID:             p.ID,
			Title:          p.Title,
			PointsRequired: p.PointsRequired,
			Description:    p.Description,
			Icon:           p.Icon,
		})
	}
	return views
}

// SessionView is one recorded read-aloud session
type SessionView struct {
	ID         string `json:"id"`
	KidID      string `json:"kidId"`
	Transcript string `json:"transcript"`
	Date       string `json:"date"`
}
