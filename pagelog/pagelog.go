// Package pagelog is the structured-logging wrapper shared by bufferpool
// and diskmanager. It replaces the teacher's fmt.Printf("[BufferPool] ...")
// debug lines with logrus fields, and formats pool statistics with
// go-humanize for anything meant to be read by a person.
package pagelog

import (
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Logger is the shared entry point; For wraps it with a component field.
var Logger = logrus.New()

// For returns a logger scoped to one component ("bufferpool",
// "diskmanager", ...).
func For(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

// PageEvent logs one page-level lifecycle event (hit, miss, evict, flush).
func PageEvent(l *logrus.Entry, event string, pageID int64, fields logrus.Fields) {
	entry := l.WithField("event", event).WithField("page_id", pageID)
	for k, v := range fields {
		entry = entry.WithField(k, v)
	}
	entry.Debug(event)
}

// Stats renders buffer pool counters the way a human reads logs, not a
// dashboard: "1,234 hits, 56 misses, 7 evictions, pool 4.1 kB/page".
func Stats(hits, misses, evictions uint64, pageSize int) string {
	return humanize.Comma(int64(hits)) + " hits, " +
		humanize.Comma(int64(misses)) + " misses, " +
		humanize.Comma(int64(evictions)) + " evictions, pool " +
		humanize.Bytes(uint64(pageSize)) + "/page"
}
