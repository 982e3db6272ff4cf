package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
)

const (
	growthBaselineWindow = 30 * 24 * time.Hour
	recentWindow         = 7 * 24 * time.Hour
	monthlyBuckets       = 6
	topStates            = 5
	recentListSize       = 5
)

// StateCount is one entry of the state distribution.
type StateCount struct {
	State      string  `json:"state"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// MonthCount is one calendar-month bucket of the creation histogram. The
// percentage is relative to the busiest of the six months, so the tallest
// bar always renders at exactly 100%.
type MonthCount struct {
	Month      string  `json:"month"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Metrics holds every derived value the dashboard renders.
type Metrics struct {
	TotalEmployees     int               `json:"totalEmployees"`
	EmployeesAtStart   int               `json:"employeesAtStart"`
	GrowthCount        int               `json:"growthCount"`
	GrowthPercentage   float64           `json:"growthPercentage"`
	GrowthNewBaseline  bool              `json:"growthNewBaseline"`
	RecentEmployees    int               `json:"recentEmployees"`
	EmployeesByState   []StateCount      `json:"employeesByState"`
	MonthlyData        []MonthCount      `json:"monthlyData"`
	MaxMonthlyCount    int               `json:"maxMonthlyCount"`
	RecentEmployeeList []domain.Employee `json:"recentEmployeeList"`
}

// Compute derives dashboard metrics from a tenant's full record set at the
// reference instant. It is a pure function: no store access, deterministic
// for a given input. Month buckets use now's location, so the caller decides
// the timezone convention once and it holds end to end.
func Compute(employees []domain.Employee, now time.Time) Metrics {
	m := Metrics{
		TotalEmployees:     len(employees),
		EmployeesByState:   []StateCount{},
		RecentEmployeeList: []domain.Employee{},
	}

	baseline := now.Add(-growthBaselineWindow)
	recentCutoff := now.Add(-recentWindow)
	for _, e := range employees {
		if e.CreatedAt.Before(baseline) {
			m.EmployeesAtStart++
		}
		if !e.CreatedAt.Before(recentCutoff) {
			m.RecentEmployees++
		}
	}

	m.GrowthCount = m.TotalEmployees - m.EmployeesAtStart
	switch {
	case m.EmployeesAtStart > 0:
		m.GrowthPercentage = round1(float64(m.GrowthCount) / float64(m.EmployeesAtStart) * 100)
	case m.GrowthCount > 0:
		// Product policy: any growth from a zero baseline reads as +100%.
		// The flag lets the renderer mark it as a new baseline rather than
		// a true percentage.
		m.GrowthPercentage = 100
		m.GrowthNewBaseline = true
	}

	m.EmployeesByState = stateDistribution(employees, m.TotalEmployees)
	m.MonthlyData, m.MaxMonthlyCount = monthlyHistogram(employees, now)
	m.RecentEmployeeList = recentList(employees)

	return m
}

// stateDistribution returns the top states by record count, descending,
// ties broken by state value ascending. Percentages are of the total record
// count, not of the top-5 subtotal.
func stateDistribution(employees []domain.Employee, total int) []StateCount {
	counts := make(map[string]int)
	for _, e := range employees {
		counts[e.State]++
	}

	out := make([]StateCount, 0, len(counts))
	for state, count := range counts {
		entry := StateCount{State: state, Count: count}
		if total > 0 {
			entry.Percentage = float64(count) / float64(total) * 100
		}
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].State < out[j].State
	})

	if len(out) > topStates {
		out = out[:topStates]
	}
	return out
}

// monthlyHistogram buckets creations into the six calendar months ending at
// now's month, oldest first. Each bucket is [first-of-month, first-of-next)
// in now's location. The max count is floored at 1 so percentage math never
// divides by zero on an empty tenant.
func monthlyHistogram(employees []domain.Employee, now time.Time) ([]MonthCount, int) {
	loc := now.Location()
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	starts := make([]time.Time, monthlyBuckets+1)
	for i := 0; i < monthlyBuckets; i++ {
		starts[i] = firstOfCurrent.AddDate(0, i-(monthlyBuckets-1), 0)
	}
	starts[monthlyBuckets] = firstOfCurrent.AddDate(0, 1, 0)

	data := make([]MonthCount, monthlyBuckets)
	for i := 0; i < monthlyBuckets; i++ {
		data[i].Month = starts[i].Format("Jan")
	}

	for _, e := range employees {
		created := e.CreatedAt.In(loc)
		for i := 0; i < monthlyBuckets; i++ {
			if !created.Before(starts[i]) && created.Before(starts[i+1]) {
				data[i].Count++
				break
			}
		}
	}

	maxCount := 1
	for i := range data {
		if data[i].Count > maxCount {
			maxCount = data[i].Count
		}
	}
	for i := range data {
		data[i].Percentage = float64(data[i].Count) / float64(maxCount) * 100
	}

	return data, maxCount
}

// recentList returns up to five records, most recently created first.
// Creation-time ties keep the higher id first since ids grow with insertion.
func recentList(employees []domain.Employee) []domain.Employee {
	out := make([]domain.Employee, len(employees))
	copy(out, employees)

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if len(out) > recentListSize {
		out = out[:recentListSize]
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
