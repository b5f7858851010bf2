// Package retention prunes the decision log by age and by count, on demand
// or on a cron schedule.
package retention
