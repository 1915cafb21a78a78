package jobs

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// five-field crontab, no descriptors or seconds
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule builds a trigger schedule for a cron expression evaluated in timezone
func ParseSchedule(cronExpr, timezone string) (cron.Schedule, error) {
	cronExpr = strings.TrimSpace(cronExpr)
	timezone = strings.TrimSpace(timezone)
	if cronExpr == "" {
		return nil, fmt.Errorf("empty cron expression")
	}
	if strings.HasPrefix(cronExpr, "TZ=") || strings.HasPrefix(cronExpr, "CRON_TZ=") {
		return nil, fmt.Errorf("timezone must not be embedded in the cron expression")
	}
	if _, err := time.LoadLocation(timezone); err != nil || timezone == "" {
		return nil, fmt.Errorf("unknown time zone %q", timezone)
	}

	sched, err := cronParser.Parse(fmt.Sprintf("CRON_TZ=%s %s", timezone, cronExpr))
	if err != nil {
		return nil, err
	}
	return sched, nil
}
