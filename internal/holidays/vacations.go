package holidays

// SchoolVacation is a named school-vacation range with inclusive bounds.
type SchoolVacation struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"` // ISO date
	EndDate   string `json:"end_date"`   // ISO date
}

// BWSchoolVacations2025 tabulates the Baden-Wuerttemberg school vacations
// for the 2025/26 school year. Used to pre-populate a holiday profile.
var BWSchoolVacations2025 = []SchoolVacation{
	{Name: "Herbstferien 2025", StartDate: "2025-10-27", EndDate: "2025-10-30"},
	{Name: "Weihnachtsferien 2025/26", StartDate: "2025-12-22", EndDate: "2026-01-05"},
	{Name: "Osterferien 2026", StartDate: "2026-03-30", EndDate: "2026-04-11"},
	{Name: "Pfingstferien 2026", StartDate: "2026-05-26", EndDate: "2026-06-05"},
	{Name: "Sommerferien 2026", StartDate: "2026-07-30", EndDate: "2026-09-12"},
}
