package reminders

import "time"

// PlannerConfig — расписание серии напоминаний по счёту. Серия эскалирует:
// чем больше напоминаний уже отправлено, тем больше пауза до следующего.
// После MaxReminders серия завершается (next = nil).
type PlannerConfig struct {
	Delay1       time.Duration // default: 3 days
	Delay2       time.Duration // default: 7 days
	Delay3       time.Duration // default: 14 days
	MaxReminders int           // default: 4
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Delay1:       3 * 24 * time.Hour,
		Delay2:       7 * 24 * time.Hour,
		Delay3:       14 * 24 * time.Hour,
		MaxReminders: 4,
	}
}

type Planner struct {
	cfg PlannerConfig
}

func NewPlanner(cfg PlannerConfig) *Planner {
	def := DefaultPlannerConfig()
	if cfg.Delay1 <= 0 {
		cfg.Delay1 = def.Delay1
	}
	if cfg.Delay2 <= 0 {
		cfg.Delay2 = def.Delay2
	}
	if cfg.Delay3 <= 0 {
		cfg.Delay3 = def.Delay3
	}
	if cfg.MaxReminders <= 0 {
		cfg.MaxReminders = def.MaxReminders
	}
	return &Planner{cfg: cfg}
}

func DefaultPlanner() *Planner {
	return NewPlanner(DefaultPlannerConfig())
}

// Next возвращает время следующего напоминания после только что отправленного
// (sentCount включает его). nil — серия исчерпана.
func (p *Planner) Next(sentCount int, now time.Time) *time.Time {
	if sentCount >= p.cfg.MaxReminders {
		return nil
	}
	var d time.Duration
	switch {
	case sentCount <= 1:
		d = p.cfg.Delay1
	case sentCount == 2:
		d = p.cfg.Delay2
	default:
		d = p.cfg.Delay3
	}
	t := now.Add(d)
	return &t
}
