package opname

import (
	"sort"
	"time"
)

// OpenTask is a scheduled or submitted task joined with its counter and
// product category, as loaded for the conflict guard.
type OpenTask struct {
	TaskID        string     `db:"task_id"`
	UserName      string     `db:"user_name"`
	CategoryCode  string     `db:"code_category"`
	CategoryName  string     `db:"name_category"`
	Status        Status     `db:"status"`
	ScheduledDate *time.Time `db:"scheduled_date"`
}

// CategoryConflict describes why a category cannot be scheduled right now.
type CategoryConflict struct {
	CategoryCode   string      `json:"category_code"`
	CategoryName   string      `json:"category_name"`
	Users          []string    `json:"users"`
	OpenTasks      int         `json:"open_tasks"`
	ScheduledDates []time.Time `json:"scheduled_dates"`
}

// ConflictReport aggregates open work per category so an admin can see who
// holds a category before assigning it again.
type ConflictReport struct {
	HasConflict bool               `json:"has_conflict"`
	Conflicts   []CategoryConflict `json:"conflicts"`
}

// BuildConflictReport groups open tasks by category, collecting the distinct
// counters and scheduled dates per category. An empty input means the
// requested categories are free.
func BuildConflictReport(open []OpenTask) ConflictReport {
	if len(open) == 0 {
		return ConflictReport{}
	}

	type bucket struct {
		conflict CategoryConflict
		users    map[string]struct{}
		dates    map[time.Time]struct{}
	}

	buckets := make(map[string]*bucket)
	order := make([]string, 0)

	for _, task := range open {
		b, ok := buckets[task.CategoryCode]
		if !ok {
			b = &bucket{
				conflict: CategoryConflict{
					CategoryCode: task.CategoryCode,
					CategoryName: task.CategoryName,
				},
				users: make(map[string]struct{}),
				dates: make(map[time.Time]struct{}),
			}
			buckets[task.CategoryCode] = b
			order = append(order, task.CategoryCode)
		}

		b.conflict.OpenTasks++
		if task.UserName != "" {
			b.users[task.UserName] = struct{}{}
		}
		if task.ScheduledDate != nil {
			b.dates[task.ScheduledDate.Truncate(24*time.Hour)] = struct{}{}
		}
	}

	sort.Strings(order)

	report := ConflictReport{HasConflict: true}
	for _, code := range order {
		b := buckets[code]
		for user := range b.users {
			b.conflict.Users = append(b.conflict.Users, user)
		}
		sort.Strings(b.conflict.Users)
		for date := range b.dates {
			b.conflict.ScheduledDates = append(b.conflict.ScheduledDates, date)
		}
		sort.Slice(b.conflict.ScheduledDates, func(i, j int) bool {
			return b.conflict.ScheduledDates[i].Before(b.conflict.ScheduledDates[j])
		})
		report.Conflicts = append(report.Conflicts, b.conflict)
	}
	return report
}
