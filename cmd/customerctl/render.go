package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"customer-service/internal/model"
	"customer-service/pkg/dashboard"

	"github.com/dustin/go-humanize"
)

const maxBar = 40

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func renderCustomers(w io.Writer, customers []model.Customer, now time.Time) {
	if len(customers) == 0 {
		fmt.Fprintln(w, "No customers yet.")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tUPDATED")
	for _, c := range customers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, orDash(c.Email), orDash(c.Phone),
			humanize.RelTime(time.UnixMilli(c.UpdatedAt), now, "ago", "from now"))
	}
	tw.Flush()
	fmt.Fprintf(w, "%s customers\n", humanize.Comma(int64(len(customers))))
}

func renderOverview(w io.Writer, o dashboard.Overview) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Total Customers\t%s\tacross your current organization\n", humanize.Comma(int64(o.Total)))
	fmt.Fprintf(tw, "New This Month\t%s\tsince %s\n", humanize.Comma(int64(o.NewThisMonth)), o.MonthStart.Format(dashboard.Label))
	fmt.Fprintf(tw, "MRR (mock)\t$ %s\tsimulated revenue series\n", humanize.Comma(int64(o.LatestRevenue())))
	fmt.Fprintf(tw, "Active Users (mock)\t%s\tlast 24h\n", humanize.Comma(int64(o.LatestActiveUsers())))
	tw.Flush()

	fmt.Fprintln(w)
	renderSignups(w, o.SignupsByDay)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Active users vs signups (mock)")
	tw = newTable(w)
	fmt.Fprintln(tw, "DAY\tACTIVE\tSIGNUPS")
	for _, p := range o.Compare {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", p.Label, p.Active, p.Signups)
	}
	tw.Flush()
}

// renderSignups prints days with at least one signup as a bar chart
func renderSignups(w io.Writer, buckets []dashboard.DayBucket) {
	if len(buckets) == 0 {
		fmt.Fprintln(w, "Customers by day: no signups yet")
		return
	}

	peak, active := 0, 0
	for _, b := range buckets {
		if b.Count > peak {
			peak = b.Count
		}
		if b.Count > 0 {
			active++
		}
	}
	fmt.Fprintf(w, "Customers by day (%s to %s, %s with signups)\n",
		buckets[0].Date.Format("Jan 2 2006"),
		buckets[len(buckets)-1].Date.Format("Jan 2 2006"),
		humanize.Comma(int64(active))+" "+plural(active, "day", "days"))

	tw := newTable(w)
	for _, b := range buckets {
		if b.Count == 0 {
			continue
		}
		width := b.Count * maxBar / peak
		if width == 0 {
			width = 1
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", b.Date.Format("Jan 2 2006"), strings.Repeat("#", width), b.Count)
	}
	tw.Flush()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
