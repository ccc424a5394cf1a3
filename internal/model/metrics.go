package model

// UserMetrics buckets a technician's repair orders by the calendar day,
// Monday-start week and calendar month containing the reference instant.
// Efficiency values are percentages of the configured labor targets.
type UserMetrics struct {
	CountDay   int `json:"countDay"`
	CountWeek  int `json:"countWeek"`
	CountMonth int `json:"countMonth"`

	LaborDay   float64 `json:"laborDay"`
	LaborWeek  float64 `json:"laborWeek"`
	LaborMonth float64 `json:"laborMonth"`

	EfficiencyDay   float64 `json:"efficiencyDay"`
	EfficiencyWeek  float64 `json:"efficiencyWeek"`
	EfficiencyMonth float64 `json:"efficiencyMonth"`
}

// TeamMetrics pools the orders of every current member. Efficiency is the
// raw labor-hours total over the whole set, not normalized against a target.
type TeamMetrics struct {
	Efficiency float64 `json:"efficiency"`
	CountDay   int     `json:"countDay"`
	CountWeek  int     `json:"countWeek"`
	CountMonth int     `json:"countMonth"`
}

// Targets are the labor-hour goals efficiency is measured against. The
// monthly target is derived as DailyTarget×30, an explicit approximation.
type Targets struct {
	DailyTarget  float64 `json:"dailyTarget"`
	WeeklyTarget float64 `json:"weeklyTarget"`
}
