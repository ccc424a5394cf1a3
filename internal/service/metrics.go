package service

import (
	"time"

	"github.com/jwsummers/techmetrix/internal/model"
)

// The aggregator is a pure function of (orders, now, targets): no I/O, no
// mutation of its inputs, deterministic for a pinned now. All calendar math
// happens in now's location so the bucket boundaries are consistent.

func sameDay(t, now time.Time) bool {
	y1, m1, d1 := t.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func sameMonth(t, now time.Time) bool {
	y1, m1, _ := t.In(now.Location()).Date()
	y2, m2, _ := now.Date()
	return y1 == y2 && m1 == m2
}

// weekStart returns midnight of the Monday of the week containing now.
// Sunday counts as day 7, so on a Sunday the week started six days earlier.
func weekStart(now time.Time) time.Time {
	day := int(now.Weekday())
	if day == 0 {
		day = 7
	}
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return midnight.AddDate(0, 0, -(day - 1))
}

func inWeek(t, now time.Time) bool {
	start := weekStart(now)
	end := start.AddDate(0, 0, 7)
	local := t.In(now.Location())
	return !local.Before(start) && local.Before(end)
}

func efficiency(labor, target float64) float64 {
	if target == 0 {
		return 0
	}
	return labor / target * 100
}

// ComputeUserMetrics buckets a single technician's orders by day, week and
// month around now and derives per-bucket efficiency percentages. The
// monthly target is DailyTarget×30, an approximation rather than the
// calendar month length.
func ComputeUserMetrics(orders []*model.RepairOrder, now time.Time, targets model.Targets) *model.UserMetrics {
	m := &model.UserMetrics{}

	for _, order := range orders {
		if sameDay(order.CreatedAt, now) {
			m.CountDay++
			m.LaborDay += order.Labor
		}
		if inWeek(order.CreatedAt, now) {
			m.CountWeek++
			m.LaborWeek += order.Labor
		}
		if sameMonth(order.CreatedAt, now) {
			m.CountMonth++
			m.LaborMonth += order.Labor
		}
	}

	m.EfficiencyDay = efficiency(m.LaborDay, targets.DailyTarget)
	m.EfficiencyWeek = efficiency(m.LaborWeek, targets.WeeklyTarget)
	m.EfficiencyMonth = efficiency(m.LaborMonth, targets.DailyTarget*30)

	return m
}

// ComputeTeamMetrics aggregates the pooled orders of a team's current
// members. Efficiency is the raw labor-hours total over the whole set, and
// only the day count is date-windowed; week and month both report the total
// order count. The asymmetry is what the team dashboard expects.
func ComputeTeamMetrics(orders []*model.RepairOrder, now time.Time) *model.TeamMetrics {
	m := &model.TeamMetrics{}

	for _, order := range orders {
		m.Efficiency += order.Labor
		if sameDay(order.CreatedAt, now) {
			m.CountDay++
		}
	}

	m.CountWeek = len(orders)
	m.CountMonth = len(orders)

	return m
}
