// Package dashboard derives the dashboard figures from a customer list.
// Every function is pure: inputs are never modified.
package dashboard

import (
	"math"
	"time"

	"customer-service/internal/model"
)

// Label layout for day buckets and series points, e.g. "Jan 2"
const Label = "Jan 2"

// Mock series parameters
const (
	SeriesDays      = 30
	RevenueBase     = 2500
	RevenueVariance = 600
	ActiveBase      = 120
	ActiveVariance  = 30
)

// Rand is the noise source for mock series; *math/rand.Rand satisfies it
type Rand interface {
	Float64() float64
}

// DayBucket is the number of signups on one calendar day
type DayBucket struct {
	Date  time.Time
	Label string
	Count int
}

// Point is one value of a simulated daily series
type Point struct {
	Date  time.Time
	Label string
	Value int
}

// ComparePoint pairs an active-user value with the signup count at the same index
type ComparePoint struct {
	Label   string
	Active  int
	Signups int
}

// Overview is everything the dashboard shows
type Overview struct {
	Total        int
	NewThisMonth int
	MonthStart   time.Time
	SignupsByDay []DayBucket
	Revenue      []Point
	ActiveUsers  []Point
	Compare      []ComparePoint
}

// LatestRevenue returns the last revenue value, or 0
func (o Overview) LatestRevenue() int {
	return last(o.Revenue)
}

// LatestActiveUsers returns the last active-users value, or 0
func (o Overview) LatestActiveUsers() int {
	return last(o.ActiveUsers)
}

func last(points []Point) int {
	if len(points) == 0 {
		return 0
	}
	return points[len(points)-1].Value
}

// StartOfMonth returns midnight on the first day of t's month, in t's location
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns midnight on the last day of t's month, in t's location
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// civilDate identifies a calendar day independent of its label
type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{y, m, d}
}

// Summarize returns the total count and the number created since the start of now's month
func Summarize(customers []model.Customer, now time.Time) (total, newThisMonth int) {
	since := StartOfMonth(now).UnixMilli()
	for _, c := range customers {
		if c.CreatedAt >= since {
			newThisMonth++
		}
	}
	return len(customers), newThisMonth
}

// SignupsByDay returns one bucket per day from the first day of the earliest
// signup's month to the last day of the later of now's month and the latest
// signup's month. Days without signups are present with a zero count.
func SignupsByDay(customers []model.Customer, now time.Time) []DayBucket {
	if len(customers) == 0 {
		return []DayBucket{}
	}
	loc := now.Location()

	earliest, latest := now, now
	counts := make(map[civilDate]int, len(customers))
	for _, c := range customers {
		created := time.UnixMilli(c.CreatedAt).In(loc)
		if created.Before(earliest) {
			earliest = created
		}
		if created.After(latest) {
			latest = created
		}
		counts[dateOf(created)]++
	}

	start := StartOfMonth(earliest)
	end := EndOfMonth(latest)

	buckets := make([]DayBucket, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		buckets = append(buckets, DayBucket{
			Date:  day,
			Label: day.Format(Label),
			Count: counts[dateOf(day)],
		})
	}
	return buckets
}

// MockSeries simulates a daily series of days points ending the day before now.
// Each value is base plus uniform noise in [-variance, variance], never below 0.
func MockSeries(days int, base, variance float64, now time.Time, rng Rand) []Point {
	if days <= 0 {
		return []Point{}
	}
	start := startOfDay(now).AddDate(0, 0, -days)

	points := make([]Point, days)
	for i := range points {
		date := start.AddDate(0, 0, i)
		value := math.Round(base + (rng.Float64()-0.5)*2*variance)
		points[i] = Point{
			Date:  date,
			Label: date.Format(Label),
			Value: int(math.Max(0, value)),
		}
	}
	return points
}

// Compare pairs each active-user point with the signup bucket at the same
// index, using 0 where there is no bucket
func Compare(active []Point, signups []DayBucket) []ComparePoint {
	out := make([]ComparePoint, len(active))
	for i, p := range active {
		out[i] = ComparePoint{Label: p.Label, Active: p.Value}
		if i < len(signups) {
			out[i].Signups = signups[i].Count
		}
	}
	return out
}

// Build derives the full dashboard for customers as of now
func Build(customers []model.Customer, now time.Time, rng Rand) Overview {
	total, newThisMonth := Summarize(customers, now)
	signups := SignupsByDay(customers, now)
	active := MockSeries(SeriesDays, ActiveBase, ActiveVariance, now, rng)

	return Overview{
		Total:        total,
		NewThisMonth: newThisMonth,
		MonthStart:   StartOfMonth(now),
		SignupsByDay: signups,
		Revenue:      MockSeries(SeriesDays, RevenueBase, RevenueVariance, now, rng),
		ActiveUsers:  active,
		Compare:      Compare(active, signups),
	}
}
