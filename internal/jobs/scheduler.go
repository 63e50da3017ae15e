package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/verawork/vera-backend/internal/notify"
	payrollsvc "github.com/verawork/vera-backend/internal/payroll/service"
	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
	"github.com/verawork/vera-backend/internal/tenants"
	"github.com/verawork/vera-backend/pkg/config"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
	"github.com/verawork/vera-backend/pkg/messaging"
	"github.com/verawork/vera-backend/pkg/tenant"
)

// Cron schedules, evaluated in the configured timezone
const (
	scheduleDailyReminders  = "0 8 * * *"
	scheduleHourlyReminders = "0 * * * *"
	schedulePayrollRollover = "0 7 1 * *"
)

// Scheduler runs the recurring background jobs across all active
// tenants. A failing tenant is logged and never blocks the others or
// the next fire.
type Scheduler struct {
	cron      *cron.Cron
	tenants   *tenants.Repository
	shifts    *schedulerepo.ShiftRepository
	employees *staffrepo.EmployeeRepository
	payroll   *payrollsvc.PayrollService
	publisher *messaging.Publisher
	logger    *logger.Logger
	location  *time.Location
}

// NewScheduler creates the job scheduler for the configured timezone
func NewScheduler(
	cfg config.SchedulerConfig,
	tenantRepo *tenants.Repository,
	shifts *schedulerepo.ShiftRepository,
	employees *staffrepo.EmployeeRepository,
	payroll *payrollsvc.PayrollService,
	publisher *messaging.Publisher,
	log *logger.Logger,
) (*Scheduler, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "Europe/Berlin"
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(location)),
		tenants:   tenantRepo,
		shifts:    shifts,
		employees: employees,
		payroll:   payroll,
		publisher: publisher,
		logger:    log,
		location:  location,
	}

	if _, err := s.cron.AddFunc(scheduleDailyReminders, s.runDailyReminders); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(scheduleHourlyReminders, s.runHourlyReminders); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(schedulePayrollRollover, s.runPayrollRollover); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins firing jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Str("timezone", s.location.String()).Msg("Job scheduler started")
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Job scheduler stopped")
}

// forEachTenant runs fn once per active tenant with tenant context set
func (s *Scheduler) forEachTenant(job string, fn func(ctx context.Context, tenantID string) error) {
	ctx := context.Background()

	tenantIDs, err := s.tenants.ListActiveIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("job", job).Msg("Job failed to list tenants")
		return
	}

	for _, tenantID := range tenantIDs {
		tctx := tenant.WithTenantID(ctx, tenantID)
		if err := fn(tctx, tenantID); err != nil {
			s.logger.Error().Err(err).
				Str("job", job).
				Str("tenant_id", tenantID).
				Msg("Job failed for tenant")
		}
	}
}

// runDailyReminders requests a reminder for every shift assigned
// tomorrow.
func (s *Scheduler) runDailyReminders() {
	tomorrow := startOfDay(time.Now().In(s.location)).AddDate(0, 0, 1)

	s.forEachTenant("daily_reminders", func(ctx context.Context, tenantID string) error {
		sent, err := s.remindShiftsOn(ctx, tenantID, tomorrow, nil)
		if err != nil {
			return err
		}
		s.logger.Info().
			Str("tenant_id", tenantID).
			Str("date", tomorrow.Format("2006-01-02")).
			Int("reminders", sent).
			Msg("Daily shift reminders published")
		return nil
	})
}

// runHourlyReminders covers shifts starting roughly two hours from
// now. The hour-equality filter keeps each shift to a single reminder
// across consecutive fires.
func (s *Scheduler) runHourlyReminders() {
	in2h := time.Now().In(s.location).Add(2 * time.Hour)
	date := startOfDay(in2h)
	hour := in2h.Hour()

	s.forEachTenant("hourly_reminders", func(ctx context.Context, tenantID string) error {
		sent, err := s.remindShiftsOn(ctx, tenantID, date, &hour)
		if err != nil {
			return err
		}
		if sent > 0 {
			s.logger.Info().
				Str("tenant_id", tenantID).
				Int("reminders", sent).
				Msg("Hourly shift reminders published")
		}
		return nil
	})
}

// remindShiftsOn publishes a reminder request per assigned shift on the
// date, optionally narrowed to shifts starting in one hour of day.
func (s *Scheduler) remindShiftsOn(ctx context.Context, tenantID string, date time.Time, startHour *int) (int, error) {
	shifts, err := s.shifts.ListUpcoming(ctx, date)
	if err != nil {
		return 0, err
	}

	employees := map[string]*staffrepo.Employee{}
	sent := 0
	for _, shift := range shifts {
		if shift.EmployeeID == nil {
			continue
		}
		if startHour != nil && shiftStartHour(shift.StartTime) != *startHour {
			continue
		}

		employee, ok := employees[*shift.EmployeeID]
		if !ok {
			employee, err = s.employees.GetByID(ctx, *shift.EmployeeID)
			if err != nil {
				s.logger.Warn().Err(err).
					Str("shift_id", shift.ID).
					Msg("Reminder skipped: employee not loadable")
				continue
			}
			employees[*shift.EmployeeID] = employee
		}

		subject, message := notify.ShiftReminderMessage(shift, employee)
		req := messaging.NotifyRequest{
			TenantID:   tenantID,
			EmployeeID: employee.ID,
			EventType:  notify.EventShiftReminder,
			Subject:    subject,
			Message:    message,
		}
		if err := s.publisher.Publish(ctx, messaging.EventNotifyShiftReminder, req); err != nil {
			s.logger.Warn().Err(err).
				Str("shift_id", shift.ID).
				Msg("Failed to publish shift reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

// runPayrollRollover settles the previous month for every tenant.
// Locked entries stay untouched; carryover rows feed the new month.
func (s *Scheduler) runPayrollRollover() {
	now := time.Now().In(s.location)
	previousMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)

	s.forEachTenant("payroll_rollover", func(ctx context.Context, tenantID string) error {
		ctx = httputil.WithUserContext(ctx, "system", "", "admin")

		result, err := s.payroll.CalculateAll(ctx, previousMonth)
		if err != nil {
			return err
		}
		s.logger.Info().
			Str("tenant_id", tenantID).
			Str("month", previousMonth.Format("2006-01")).
			Int("calculated", result.Calculated).
			Int("skipped", result.Skipped).
			Msg("Payroll rollover completed")
		return nil
	})
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func shiftStartHour(startTime string) int {
	if len(startTime) < 2 {
		return -1
	}
	return int(startTime[0]-'0')*10 + int(startTime[1]-'0')
}
